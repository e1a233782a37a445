package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kvesta/vulncollect/config"
	"github.com/kvesta/vulncollect/internal/vulnscan"
	"github.com/kvesta/vulncollect/pkg/component"

	"github.com/olekukonko/tablewriter"
)

var out io.Writer = os.Stdout

type severityCount struct {
	critical, high, medium, low int
}

func (s *severityCount) add(severity string) {
	switch strings.ToLower(severity) {
	case "critical":
		s.critical += 1
	case "high":
		s.high += 1
	case "medium":
		s.medium += 1
	case "low":
		s.low += 1
	default:
		// ignore
	}
}

func countVulns(records []vulnscan.EnrichedComponent) (int, severityCount) {
	total := 0
	counts := severityCount{}

	for _, r := range records {
		if r.Passthrough() {
			continue
		}

		total += 1
		counts.add(r.Vuln.Severity)
	}

	return total, counts
}

// ResolveCollectData print the result of a project collection
func ResolveCollectData(project string, bucket *vulnscan.Bucket, table bool) error {
	all := append(append([]vulnscan.EnrichedComponent{}, bucket.Versioned...), bucket.Unspecified...)
	total, counts := countVulns(all)

	fmt.Fprintf(out, "\nProject %s: %s records, detected %s vulnerabilities | "+
		"Critical: %s High: %s Medium: %s Low: %s\n\n",
		project,
		config.Yellow(bucket.Len()),
		config.Yellow(total),
		config.Red(counts.critical),
		config.Pink(counts.high),
		config.Yellow(counts.medium),
		config.Green(counts.low))

	if !table || total == 0 {
		return nil
	}

	renderBucket("Versioned", bucket.Versioned)
	renderBucket("Unspecified versions", bucket.Unspecified)

	return nil
}

func renderBucket(title string, records []vulnscan.EnrichedComponent) {
	total, _ := countVulns(records)
	if total == 0 {
		return
	}

	fmt.Fprintf(out, "%s:\n", title)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Component", "Version", "Vulnerability", "Score", "Level", "Description"})
	table.SetRowLine(true)
	table.SetAutoMergeCellsByColumnIndex([]int{1})

	id := 0
	for _, r := range records {
		if r.Passthrough() {
			continue
		}

		id += 1
		table.Append([]string{
			strconv.Itoa(id), r.Name, versionCell(r.Version),
			r.Vuln.ID, fmt.Sprintf("%.1f", r.Vuln.Score),
			judgeSeverity(r.Vuln.Severity), shorten(r.Vuln.Description),
		})
	}

	table.Render()
	fmt.Fprintf(out, "\n")
}

// ResolveSearchData print the result of a knowledge base search
func ResolveSearchData(vulns []component.Vulnerability) error {
	counts := severityCount{}
	for _, v := range vulns {
		counts.add(v.Severity)
	}

	fmt.Fprintf(out, "\nFound %s vulnerabilities | "+
		"Critical: %s High: %s Medium: %s Low: %s\n\n",
		config.Yellow(len(vulns)),
		config.Red(counts.critical),
		config.Pink(counts.high),
		config.Yellow(counts.medium),
		config.Green(counts.low))

	if len(vulns) == 0 {
		return nil
	}

	vulns = sortSeverity(vulns)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Vulnerability", "Vulnerable Version", "Score", "Level", "Published", "Description"})
	table.SetRowLine(true)

	for i, v := range vulns {
		table.Append([]string{
			strconv.Itoa(i + 1), v.ID, v.Attributes["vulnerableVersion"],
			fmt.Sprintf("%.1f", v.Score), judgeSeverity(v.Severity),
			v.PublishDate, shorten(v.Description),
		})
	}

	table.Render()

	return nil
}

// sortSeverity returns a copy ordered from the most severe down.
func sortSeverity(vulns []component.Vulnerability) []component.Vulnerability {
	sorted := append([]component.Vulnerability{}, vulns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return config.SeverityMap[strings.ToLower(sorted[i].Severity)] > config.SeverityMap[strings.ToLower(sorted[j].Severity)]
	})

	return sorted
}

func versionCell(version *string) string {
	if version == nil {
		return "-"
	}
	return *version
}

// Limit the length of description to 200 characters
func shorten(desc string) string {
	runes := []rune(desc)
	if len(runes) > 200 {
		return string(runes[:200]) + " ..."
	}
	return desc
}

func judgeSeverity(severity string) string {

	severityLow := strings.ToLower(severity)

	switch severityLow {
	case "critical":
		return config.Red("critical")
	case "high":
		return config.Pink("high")
	case "medium":
		return config.Yellow("medium")
	case "low":
		return config.Green("low")
	case "info":
		return "info"
	default:
		// ignore
	}
	return "unknown"
}
