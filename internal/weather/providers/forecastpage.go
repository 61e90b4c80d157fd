package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html/charset"

	"github.com/i474232898/current-conditions/internal/common"
	"github.com/i474232898/current-conditions/internal/weather"
)

// MatchMode selects how detail labels are paired with table rows.
type MatchMode string

const (
	// MatchExact pairs a label with the first row whose own bold label equals it.
	MatchExact MatchMode = "exact"
	// MatchSubstring pairs a label with the first row whose text contains it. A short
	// label such as "Wind" also matches a "Wind Gust" row.
	MatchSubstring MatchMode = "substring"
)

// DefaultForecastBaseURL is the National Weather Service forecast site.
const DefaultForecastBaseURL = "https://forecast.weather.gov/"

// Page landmarks of forecast.weather.gov MapClick.php.
var (
	headerSel    = cascadia.MustCompile("h2.panel-title")
	summarySel   = cascadia.MustCompile("#current_conditions-summary")
	iconSel      = cascadia.MustCompile("img")
	conditionSel = cascadia.MustCompile("p.myforecast-current")
	tempFSel     = cascadia.MustCompile("p.myforecast-current-lrg")
	tempCSel     = cascadia.MustCompile("p.myforecast-current-sm")
	detailsSel   = cascadia.MustCompile("#current_conditions_detail")
	labelSel     = cascadia.MustCompile("b")
	rowSel       = cascadia.MustCompile("tr")
)

var (
	errEmptyBody   = errors.New("empty response body")
	errNotHTML     = errors.New("response is not an HTML document")
	errMissingSrc  = errors.New("icon has no src")
	errBadIconPath = errors.New("icon src is not a valid URL")
)

// ForecastPageExtractor scrapes the current conditions panel of the forecast page.
type ForecastPageExtractor struct {
	name    string
	baseURL *url.URL
	mode    MatchMode
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
	log     zerolog.Logger
}

// NewForecastPageExtractor creates an extractor for the forecast site at baseURL.
func NewForecastPageExtractor(httpCfg HTTPClientConfig, baseURL string, mode MatchMode, log zerolog.Logger) (*ForecastPageExtractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid forecast base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	switch mode {
	case MatchExact, MatchSubstring:
	case "":
		mode = MatchExact
	default:
		return nil, fmt.Errorf("unknown label match mode %q", mode)
	}

	return &ForecastPageExtractor{
		name:    "forecast.weather.gov",
		baseURL: u,
		mode:    mode,
		httpCfg: httpCfg,
		circuit: newBreaker("forecast-page"),
		now:     time.Now,
		log:     log.With().Str("component", "extractor").Logger(),
	}, nil
}

func (p *ForecastPageExtractor) Name() string {
	return p.name
}

// PageURL returns the forecast page address for coords.
func (p *ForecastPageExtractor) PageURL(coords weather.Coordinates) string {
	values := url.Values{}
	values.Set("lat", coords.LatString())
	values.Set("lon", coords.LonString())

	u := p.baseURL.ResolveReference(&url.URL{Path: "MapClick.php"})
	u.RawQuery = values.Encode()
	return u.String()
}

func (p *ForecastPageExtractor) FetchSnapshot(ctx context.Context, coords weather.Coordinates) (weather.WeatherSnapshot, error) {
	pageURL := p.PageURL(coords)

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, pageURL, nil)
	}

	resp, err := doRequestWithResilience(ctx, "fetch forecast page", p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	defer resp.Body.Close()

	doc, err := parseHTML(resp)
	if err != nil {
		return weather.WeatherSnapshot{}, &weather.ParseError{Op: "fetch forecast page", URL: pageURL, Err: err}
	}

	snapshot, err := p.extract(doc)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	snapshot.Coordinates = coords
	snapshot.SourceURL = pageURL
	snapshot.FetchedAt = p.now().UTC()

	p.log.Debug().
		Str("url", pageURL).
		Strs("labels", snapshot.Details.Keys()).
		Msg("Extracted current conditions")
	return snapshot, nil
}

// parseHTML decodes the body according to its declared charset and parses it.
func parseHTML(resp *http.Response) (*goquery.Document, error) {
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("content type %q: %w", contentType, err)
		}
		if !common.HasAny(mediaType, "html", "xml") {
			return nil, fmt.Errorf("%w: %s", errNotHTML, mediaType)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return goquery.NewDocumentFromReader(r)
}

func (p *ForecastPageExtractor) extract(doc *goquery.Document) (weather.WeatherSnapshot, error) {
	header := doc.FindMatcher(headerSel).First()
	if header.Length() == 0 {
		return weather.WeatherSnapshot{}, &weather.ExtractionError{Kind: weather.MissingHeader}
	}

	summary, err := p.extractSummary(doc)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	details := doc.FindMatcher(detailsSel).First()
	if details.Length() == 0 {
		return weather.WeatherSnapshot{}, &weather.ExtractionError{Kind: weather.MissingDetails}
	}

	return weather.WeatherSnapshot{
		Header:  strings.TrimSpace(header.Text()),
		Summary: summary,
		Details: extractDetails(details, p.mode),
	}, nil
}

func (p *ForecastPageExtractor) extractSummary(doc *goquery.Document) (weather.ConditionSummary, error) {
	container := doc.FindMatcher(summarySel).First()
	if container.Length() == 0 {
		return weather.ConditionSummary{}, &weather.ExtractionError{Kind: weather.MissingSummary}
	}

	img := container.FindMatcher(iconSel).First()
	if img.Length() == 0 {
		return weather.ConditionSummary{}, &weather.ExtractionError{Kind: weather.MissingSummaryField, Field: "icon"}
	}
	iconURL, err := p.resolveIcon(img)
	if err != nil {
		return weather.ConditionSummary{}, &weather.ExtractionError{Kind: weather.MissingSummaryField, Field: "icon"}
	}

	text := func(sel cascadia.Selector, field string) (string, error) {
		s := container.FindMatcher(sel).First()
		if s.Length() == 0 {
			return "", &weather.ExtractionError{Kind: weather.MissingSummaryField, Field: field}
		}
		return strings.TrimSpace(s.Text()), nil
	}

	cond, err := text(conditionSel, "condition")
	if err != nil {
		return weather.ConditionSummary{}, err
	}
	tempF, err := text(tempFSel, "temperature F")
	if err != nil {
		return weather.ConditionSummary{}, err
	}
	tempC, err := text(tempCSel, "temperature C")
	if err != nil {
		return weather.ConditionSummary{}, err
	}

	return weather.ConditionSummary{
		IconURL:      iconURL,
		Condition:    cond,
		TemperatureF: tempF,
		TemperatureC: tempC,
	}, nil
}

func (p *ForecastPageExtractor) resolveIcon(img *goquery.Selection) (string, error) {
	src, ok := img.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return "", errMissingSrc
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadIconPath, err)
	}
	return p.baseURL.ResolveReference(ref).String(), nil
}

// extractDetails collects the bold labels of the details container in document
// order and pairs each with a row value according to mode.
func extractDetails(container *goquery.Selection, mode MatchMode) weather.DetailFields {
	var labels []string
	seen := make(map[string]bool)
	for _, b := range container.FindMatcher(labelSel).EachIter() {
		label := strings.TrimSpace(b.Text())
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	type row struct {
		text  string // whitespace-trimmed
		label string // first bold label inside the row
	}
	var rows []row
	for _, tr := range container.FindMatcher(rowSel).EachIter() {
		rows = append(rows, row{
			text:  strings.TrimSpace(tr.Text()),
			label: strings.TrimSpace(tr.FindMatcher(labelSel).First().Text()),
		})
	}

	fields := make([]weather.Field, 0, len(labels))
	for _, label := range labels {
		f := weather.Field{Label: label}
		for _, r := range rows {
			var match bool
			switch mode {
			case MatchSubstring:
				match = strings.Contains(r.text, label)
			default:
				match = r.label == label
			}
			if match {
				f.Value = rowValue(r.text, label)
				f.Found = true
				break
			}
		}
		fields = append(fields, f)
	}
	return weather.NewDetailFields(fields...)
}

// rowValue strips the label and line breaks out of a row's text.
func rowValue(rowText, label string) string {
	v := strings.ReplaceAll(rowText, label, "")
	v = strings.ReplaceAll(v, "\r", "")
	v = strings.ReplaceAll(v, "\n", "")
	return strings.TrimSpace(v)
}
