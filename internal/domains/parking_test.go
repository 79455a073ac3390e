package domains

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsParkingPage_Markers(t *testing.T) {
	pages := []string{
		`<html><body><h1>This Domain Is For Sale</h1></body></html>`,
		`<html><head><title>parked free, courtesy of GoDaddy</title></head></html>`,
		`<html><script src="https://sedoparking.com/frame.js"></script></html>`,
		`<html><body>Make an offer on this domain today!</body></html>`,
	}
	for _, page := range pages {
		assert.True(t, IsParkingPage(page), "page %q", page[:40])
	}
}

func TestIsParkingPage_RealSitePasses(t *testing.T) {
	page := `<html><body>
		<h1>Acme Plumbing</h1>
		<p>Family owned since 1987. Serving the greater Seattle area.</p>
		<footer>Call us: (206) 555-0100 | info@acmeplumbing.com</footer>
	</body></html>`
	assert.False(t, IsParkingPage(page))
}

func TestIsParkingPage_EmptyHTML(t *testing.T) {
	assert.False(t, IsParkingPage(""))
}
