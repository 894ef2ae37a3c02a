package abstractcluster

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

var GenerateHTMLCmd = &cobra.Command{
	Use:   "generate-html",
	Short: "Generate HTML version of the cluster report",
	Run: func(cmd *cobra.Command, args []string) {
		reportPath := filepath.Join(Config.OutputDir, "report.md")
		reportData, err := os.ReadFile(reportPath)
		if err != nil {
			log.Printf("Failed to read %s: %v", reportPath, err)
			return
		}

		htmlContent, err := generateCompleteHTML(string(reportData))
		if err != nil {
			log.Printf("Failed to generate HTML: %v", err)
			return
		}

		htmlPath := filepath.Join(Config.OutputDir, "report.html")
		if err := os.WriteFile(htmlPath, []byte(htmlContent), 0644); err != nil {
			log.Printf("Failed to write HTML file: %v", err)
			return
		}

		log.Printf("HTML report generated: %s", htmlPath)
	},
}

// generateCompleteHTML generates a complete HTML document with embedded CSS
func generateCompleteHTML(markdownContent string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownContent), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Abstract Clusters",
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return result.String(), nil
}
