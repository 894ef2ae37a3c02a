package abstractcluster

import (
	"strings"
	"testing"
	"time"
)

func sampleResult() *RunResult {
	return &RunResult{
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Documents: Corpus{
			{DocID: "d1", Title: "Cooling streets"},
			{DocID: "d2", Title: "Heat and health"},
			{DocID: "d3", Title: "Bus ridership"},
		},
		Iterations: []Iteration{{
			Index:     0,
			InputSize: 3,
			Best: &BestResult{
				Params:        ParameterCombination{MinClusterSize: 2, MinSamples: 1},
				Silhouette:    0.42,
				TotalClusters: 1,
			},
			Outliers: []string{"d3"},
		}},
		Clusters: []ClusterSummary{{
			ClusterNo: 1,
			DocIDs:    []string{"d1", "d2"},
			NumDocs:   2,
			Percent:   66.7,
			Score:     0.42,
			Terms: []Term{
				{Text: "urban heat", Freq: 4, Score: 0.3, DocIDs: []string{"d1", "d2"}},
			},
			TopTerms: []Term{
				{Text: "urban heat", Freq: 4, Score: 0.3, DocIDs: []string{"d1", "d2"}},
			},
			FreqTerms: []Term{
				{Text: "urban heat", Freq: 4, Score: 6, DocIDs: []string{"d1", "d2"}},
				{Text: "street trees", Freq: 1, Score: 2, DocIDs: []string{"d1"}},
			},
		}},
		DocumentTerms: []DocumentTerms{
			{DocID: "d1", Terms: []Term{{Text: "street trees"}, {Text: "urban heat"}}},
			{DocID: "d2", Terms: []Term{}},
		},
		Residual:    []string{"d3"},
		Termination: TerminationNoScore,
	}
}

func TestFormatReport(t *testing.T) {
	report, err := formatReport(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"# Abstract Clusters",
		"3 documents, 1 clusters, 1 iterations, 1 residual (no-defined-score)",
		"## Cluster 1",
		"**Key terms:** urban heat (2)",
		"| urban heat | 4 | 2 | 0.3000 |",
		"**Frequent terms:** urban heat, street trees",
		"- d1: Cooling streets (street trees, urban heat)",
		"- d2: Heat and health\n",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(report, "Bus ridership") {
		t.Error("residual documents must not be listed under a cluster")
	}
}

func TestFormatReportUnknownMember(t *testing.T) {
	result := sampleResult()
	result.Clusters[0].DocIDs = append(result.Clusters[0].DocIDs, "ghost")
	if _, err := formatReport(result); err == nil {
		t.Fatal("expected error for a cluster member missing from the documents")
	}
}

func TestGenerateCompleteHTML(t *testing.T) {
	report, err := formatReport(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	html, err := generateCompleteHTML(report)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>Abstract Clusters", "<table>", "id=\"cluster-1\""} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestResultSchema(t *testing.T) {
	schema := resultSchema()
	if schema.Type != "object" {
		t.Fatalf("unexpected schema type %q", schema.Type)
	}
	for _, name := range []string{"clusters", "iterations", "residual", "termination", "document_terms"} {
		if _, ok := schema.Properties.Get(name); !ok {
			t.Errorf("schema missing property %s", name)
		}
	}
	clusters, _ := schema.Properties.Get("clusters")
	if clusters.Items == nil {
		t.Fatal("clusters must be an array schema")
	}
	if _, ok := clusters.Items.Properties.Get("cluster_no"); !ok {
		t.Error("cluster schema missing cluster_no")
	}
}
