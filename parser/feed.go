package parser

import (
	"sort"
	"strings"

	cedar "github.com/iohub/ahocorasick"
	"github.com/thoas/go-funk"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/underlx/servicealerts/utils"
)

// Line is a line of the network, as it may be referred to in free text
type Line struct {
	ID    string
	Names []string
}

// disruptionStems are normalized word stems that indicate a news item is about a disruption
var disruptionStems = []string{
	"perturbac",
	"interromp",
	"interrupc",
	"encerrad",
	"encerrament",
	"condicionad",
	"suspens",
	"greve",
	"avaria",
}

type triggerKind int

const (
	triggerLine triggerKind = iota
	triggerStem
)

type trigger struct {
	kind   triggerKind
	lineID string
	needle string
}

// FeedParser interprets news feed items that mention disruptions on network lines.
// Free text is never trusted enough for high confidence results
type FeedParser struct {
	matcher *cedar.Matcher
}

var _ reconcile.Parser = (*FeedParser)(nil)

// NewFeedParser returns a FeedParser that recognizes the given lines
func NewFeedParser(lines []Line) *FeedParser {
	p := &FeedParser{
		matcher: cedar.NewMatcher(),
	}
	for _, line := range lines {
		for _, name := range line.Names {
			p.insert(trigger{kind: triggerLine, lineID: line.ID}, name)
		}
	}
	for _, stem := range disruptionStems {
		p.insert(trigger{kind: triggerStem}, stem)
	}
	p.matcher.Compile()
	return p
}

func (p *FeedParser) insert(t trigger, word string) {
	t.needle = utils.NormalizeText(word)
	p.matcher.Insert([]byte(t.needle), t)
}

// Process implements reconcile.Parser
func (p *FeedParser) Process(input types.ExternalDisruptionData) *reconcile.ParseResult {
	item, ok := input.(types.FeedItem)
	if !ok {
		return nil
	}

	content := utils.NormalizeText(item.Title + "\n" + item.Description)
	lines, mentionsDisruption := p.scan(content)
	if !mentionsDisruption {
		return nil
	}
	if len(lines) == 0 {
		return &reconcile.ParseResult{}
	}

	return &reconcile.ParseResult{
		Disruptions: []types.DisruptionData{
			types.LineDisruption{
				Lines: lines,
				Text:  item.Title,
				Start: item.Published,
			},
		},
	}
}

func (p *FeedParser) scan(content string) ([]string, bool) {
	lines := []string{}
	mentionsDisruption := false
	b := []byte(content)
	resp := p.matcher.Match(b)
	defer resp.Release()
	for resp.HasNext() {
		for _, token := range resp.NextMatchItem(b) {
			t := token.Value.(trigger)
			if t.kind == triggerStem {
				mentionsDisruption = true
				continue
			}

			if mentionsWord(content, t.needle) {
				lines = append(lines, t.lineID)
			}
		}
	}
	lines = funk.UniqString(lines)
	sort.Strings(lines)
	return lines, mentionsDisruption
}

// mentionsWord returns whether needle occurs in content delimited by word separators
func mentionsWord(content, needle string) bool {
	offset := 0
	for {
		idx := strings.Index(content[offset:], needle)
		if idx < 0 {
			return false
		}
		startIdx := offset + idx
		endIdx := startIdx + len(needle)
		offset = startIdx + 1
		if startIdx > 0 && !isWordSeparator(content[startIdx-1:startIdx]) {
			// case like "linhazul"
			continue
		}
		if endIdx < len(content) && !isWordSeparator(content[endIdx:endIdx+1]) {
			// case like "verdejante"
			continue
		}
		return true
	}
}

func isWordSeparator(seq string) bool {
	return funk.ContainsString([]string{" ", ".", ",", ":", ";", "!", "?", "\n", "\"", "(", ")", "-"}, seq)
}
