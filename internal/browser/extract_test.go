package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks_ResolvesRelative(t *testing.T) {
	html := `<html><body>
		<a href="/files/data.csv">data</a>
		<a href="next.html">next</a>
		<a href="https://other.example.com/x">abs</a>
		<a href="#section">anchor</a>
		<a href="javascript:void(0)">js</a>
	</body></html>`

	links, err := ExtractLinks(html, "https://quiz.example.com/q/1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://quiz.example.com/files/data.csv",
		"https://quiz.example.com/q/next.html",
		"https://other.example.com/x",
	}, links)
}

func TestFindSubmitURL_FormAction(t *testing.T) {
	html := `<html><body><form action="/api/answer" method="post"></form></body></html>`
	assert.Equal(t, "/api/answer", FindSubmitURL(html, ""))
}

func TestFindSubmitURL_Patterns(t *testing.T) {
	tests := []struct {
		name string
		html string
		text string
		want string
	}{
		{
			name: "submit key in script",
			html: `<script>const cfg = {submit: "https://quiz.example.com/submit"}</script>`,
			want: "https://quiz.example.com/submit",
		},
		{
			name: "action containing submit",
			html: `<div action="/quiz/submit-answer">x</div>`,
			want: "/quiz/submit-answer",
		},
		{
			name: "data attribute",
			html: `<button data-submit-url="/s">go</button>`,
			want: "/s",
		},
		{
			name: "visible text",
			html: `<p>POST your JSON</p>`,
			text: "POST this JSON and submit to: https://quiz.example.com/check.",
			want: "https://quiz.example.com/check",
		},
		{
			name: "nothing found",
			html: `<p>no endpoint here</p>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindSubmitURL(tt.html, tt.text))
		})
	}
}

func TestResolveSubmitURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		submit string
		want   string
	}{
		{name: "absolute passthrough", base: "https://q.example.com/1", submit: "https://api.example.com/submit", want: "https://api.example.com/submit"},
		{name: "relative path", base: "https://q.example.com/quiz/1", submit: "/submit", want: "https://q.example.com/submit"},
		{name: "relative without slash", base: "https://q.example.com/quiz/1", submit: "answer", want: "https://q.example.com/quiz/answer"},
		{name: "empty defaults to /submit on origin", base: "https://q.example.com/quiz/1?x=2", submit: "", want: "https://q.example.com/submit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSubmitURL(tt.base, tt.submit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractInstructions_PrefersContainers(t *testing.T) {
	html := `<html><body>
		<nav>irrelevant navigation links</nav>
		<div class="instructions">Compute the mean of column A and POST it as JSON.</div>
	</body></html>`
	assert.Equal(t, "Compute the mean of column A and POST it as JSON.", ExtractInstructions(html))
}

func TestExtractInstructions_BodyFallback(t *testing.T) {
	html := `<html><body><p>short</p></body></html>`
	assert.Equal(t, "short", ExtractInstructions(html))
}

func TestSelectText(t *testing.T) {
	html := `<html><body><table id="data"><tr><td>1</td></tr></table><p>other</p></body></html>`

	text, outer, err := SelectText(html, "#data")
	require.NoError(t, err)
	assert.Equal(t, "1", text)
	assert.Contains(t, outer, "<table")
}
