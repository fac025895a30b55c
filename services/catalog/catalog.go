// Package catalog fetches the university course catalog by curriculum
// designation (UCORE) code.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"courserank-backend/lib/restyutil"
	"courserank-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("courserank/services/catalog")
var coursesCounter = telemetry.Counter(
	otel.Meter("courserank/services/catalog"),
	"catalog.courses",
	"catalog course rows fetched",
)

const (
	DefaultApiURL    = "https://catalog.wsu.edu/api/Data"
	DefaultSearchURL = "https://catalog.wsu.edu/general/Courses/"
)

var DefaultDesignations = []string{
	"ROOT", "WRTG", "COMM", "QUAN",
	"ARTS", "HUM", "SSCI", "BSCI",
	"PSCI", "DIVR", "EQJS", "CAPS",
}

type CatalogCourse struct {
	// subject and number, eg. "CPT S 121"
	CourseID    string
	Designation string
	DisplayName string
	// free-form credit descriptor, eg. "3" or "1-4"
	Credits string
}

type Options struct {
	ApiURL    string
	SearchURL string
	Timeout   time.Duration
	// if set, raw http exchanges are recorded here at debug level
	Output restyutil.InstrumentOutput
}

type Fetcher struct {
	http *resty.Client
	opts Options
}

func NewFetcher(opts Options) *Fetcher {
	if opts.ApiURL == "" {
		opts.ApiURL = DefaultApiURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.ApiURL, "/"))
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("accept", "application/json")
	client.SetTimeout(opts.Timeout)

	restyutil.InstrumentClient(client, otel.Tracer("courserank/services/catalog/http"), opts.Output)

	return &Fetcher{http: client, opts: opts}
}

// flexString accepts both json strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		err := json.Unmarshal(data, &str)
		*s = flexString(str)
		return err
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var num json.Number
	err := json.Unmarshal(data, &num)
	*s = flexString(num.String())
	return err
}

type apiCourse struct {
	Subject       flexString `json:"subject"`
	Number        flexString `json:"number"`
	LongTitle     string     `json:"longTitle"`
	CreditsPhrase flexString `json:"creditsPhrase"`
}

// Fetch retrieves the courses of every designation in codes. The catalog is
// treated as authoritative, so a failure on any designation fails the
// whole fetch and nothing is returned.
func (f *Fetcher) Fetch(ctx context.Context, designations []string) ([]CatalogCourse, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	var out []CatalogCourse
	seen := make(map[string]struct{})
	for _, code := range designations {
		code = strings.ToUpper(strings.TrimSpace(code))
		if _, ok := seen[code]; ok || code == "" {
			continue
		}
		seen[code] = struct{}{}

		courses, err := f.fetchDesignation(ctx, code)
		if err != nil {
			err = fmt.Errorf("fetch designation %s: %w", code, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		slog.InfoContext(ctx, "fetched designation", "designation", code, "courses", len(courses))
		out = append(out, courses...)
	}

	span.SetAttributes(attribute.Int("courses", len(out)))
	coursesCounter.Add(ctx, int64(len(out)))
	return out, nil
}

func (f *Fetcher) fetchDesignation(ctx context.Context, code string) ([]CatalogCourse, error) {
	res, err := f.http.R().
		SetContext(ctx).
		SetPathParam("code", code).
		Get("/GetCoursesByUcore/{code}/General")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("unexpected status %s", res.Status())
	}

	var listing []apiCourse
	err = json.Unmarshal(res.Body(), &listing)
	if err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	courses := make([]CatalogCourse, 0, len(listing))
	for _, c := range listing {
		subject := strings.TrimSpace(string(c.Subject))
		number := strings.TrimSpace(string(c.Number))
		if subject == "" || number == "" {
			return nil, fmt.Errorf("course without subject or number: %q", c.LongTitle)
		}
		courses = append(courses, CatalogCourse{
			CourseID:    subject + " " + number,
			Designation: code,
			DisplayName: strings.TrimSpace(c.LongTitle),
			Credits:     strings.TrimSpace(string(c.CreditsPhrase)),
		})
	}
	return courses, nil
}

// DiscoverDesignations reads the designation codes offered by the catalog
// search page's UCORE dropdown.
func (f *Fetcher) DiscoverDesignations(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "DiscoverDesignations")
	defer span.End()

	res, err := f.http.R().
		SetContext(ctx).
		SetHeader("accept", "text/html").
		Get(f.opts.SearchURL)
	if err == nil && res.IsError() {
		err = fmt.Errorf("unexpected status %s", res.Status())
	}
	if err != nil {
		err = fmt.Errorf("load catalog search page: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse catalog search page: %w", err)
	}

	var out []string
	seen := make(map[string]struct{})
	doc.Find("select#ucores option").Each(func(_ int, s *goquery.Selection) {
		value := strings.ToUpper(strings.TrimSpace(s.AttrOr("value", "")))
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		out = append(out, value)
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("no designations found on %s", f.opts.SearchURL)
	}
	slog.DebugContext(ctx, "discovered designations", "count", len(out), "designations", strconv.Quote(strings.Join(out, ",")))
	return out, nil
}
