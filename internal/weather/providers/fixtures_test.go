package providers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// forecastPage describes a forecast.weather.gov style fixture. Empty strings drop the
// corresponding element.
type forecastPage struct {
	Header    string
	IconSrc   string
	Condition string
	TempF     string
	TempC     string

	NoSummary bool
	NoDetails bool

	// DetailsHTML replaces the generated detail table when set.
	DetailsHTML string
	Details     [][2]string
}

func seattlePage() forecastPage {
	return forecastPage{
		Header:    "Seattle, WA",
		IconSrc:   "newimages/large/skc.png",
		Condition: "Sunny",
		TempF:     "72&deg;F",
		TempC:     "22&deg;C",
		Details: [][2]string{
			{"Humidity", "45%"},
			{"Wind Speed", "5 mph"},
		},
	}
}

func (p forecastPage) HTML() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>National Weather Service</title></head><body>\n")
	b.WriteString(`<div id="current-conditions" class="panel panel-default">` + "\n")
	if p.Header != "" {
		fmt.Fprintf(&b, "<div class=\"panel-heading\"><h2 class=\"panel-title\">\n  %s\n</h2></div>\n", p.Header)
	}
	b.WriteString(`<div class="panel-body" id="current-conditions-body">` + "\n")
	if !p.NoSummary {
		b.WriteString(`<div id="current_conditions-summary" class="pull-left">` + "\n")
		if p.IconSrc != "" {
			fmt.Fprintf(&b, "<img src=\"%s\" alt=\"\" class=\"pull-left\" />\n", p.IconSrc)
		}
		if p.Condition != "" {
			fmt.Fprintf(&b, "<p class=\"myforecast-current\">%s</p>\n", p.Condition)
		}
		if p.TempF != "" {
			fmt.Fprintf(&b, "<p class=\"myforecast-current-lrg\">%s</p>\n", p.TempF)
		}
		if p.TempC != "" {
			fmt.Fprintf(&b, "<p class=\"myforecast-current-sm\">%s</p>\n", p.TempC)
		}
		b.WriteString("</div>\n")
	}
	if !p.NoDetails {
		b.WriteString(`<div id="current_conditions_detail" class="pull-left">` + "\n")
		if p.DetailsHTML != "" {
			b.WriteString(p.DetailsHTML)
		} else {
			b.WriteString("<table>\n")
			for _, d := range p.Details {
				fmt.Fprintf(&b, "<tr>\n<td class=\"text-right\"><b>%s</b></td>\n<td>%s</td>\n</tr>\n", d[0], d[1])
			}
			b.WriteString("</table>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div></div>\n</body></html>\n")
	return b.String()
}

// pageServer serves body for MapClick.php and counts hits.
func pageServer(t *testing.T, status int, contentType, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client:    client,
		UserAgent: "current-conditions-test",
	}
}

var fixedNow = time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)

func newTestExtractor(t *testing.T, srv *httptest.Server, mode MatchMode) *ForecastPageExtractor {
	t.Helper()
	p, err := NewForecastPageExtractor(testHTTPConfig(srv.Client()), srv.URL, mode, zerolog.Nop())
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	return p
}
