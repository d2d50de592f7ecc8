package extract

import (
	"strings"
	"testing"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
  <title>Pedestrian killed by train in Boca Raton</title>
  <script>var tracking = "should not appear";</script>
  <style>body { color: red; }</style>
</head>
<body>
  <nav>Home | News | Sports</nav>
  <article>
    <h1>Pedestrian killed by train in Boca Raton</h1>
    <p>A 45-year-old man was struck and killed by a train Sunday morning
    near the Camino Real crossing, police said. The victim, identified as
    John Smith of Delray Beach, was pronounced dead at the scene.</p>
    <p>Investigators said the crossing gates were functioning at the time
    of the crash. The incident remains under investigation by local police
    and the railroad operator.</p>
  </article>
  <footer>Copyright 2024 Example News</footer>
</body>
</html>`

func TestParse(t *testing.T) {
	p := NewArticleParser(100)

	parsed, err := p.Parse("https://example.com/story", testPage)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if parsed.Title != "Pedestrian killed by train in Boca Raton" {
		t.Errorf("title = %q", parsed.Title)
	}
	if !strings.Contains(parsed.Text, "John Smith of Delray Beach") {
		t.Error("article body missing from extracted text")
	}
	if strings.Contains(parsed.Text, "should not appear") {
		t.Error("script content leaked into text")
	}
	if strings.Contains(parsed.Text, "color: red") {
		t.Error("style content leaked into text")
	}
	if strings.Contains(parsed.Text, "Home | News") {
		t.Error("nav content leaked into text")
	}
	if strings.Contains(parsed.Text, "Copyright 2024") {
		t.Error("footer content leaked into text")
	}
}

func TestParse_TooShort(t *testing.T) {
	p := NewArticleParser(200)
	if _, err := p.Parse("https://example.com/x", "<html><body><p>stub</p></body></html>"); err == nil {
		t.Error("expected error for boilerplate-only page")
	}
}

func TestParse_MalformedHTMLStillExtracts(t *testing.T) {
	// html.Parse is lenient; unclosed tags should not be fatal.
	page := "<html><body><p>" + strings.Repeat("word ", 100) + "<div>more text"
	p := NewArticleParser(100)
	if _, err := p.Parse("https://example.com/x", page); err != nil {
		t.Errorf("Parse: %v", err)
	}
}
