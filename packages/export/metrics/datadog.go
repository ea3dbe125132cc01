package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DataDogExporter posts metrics to the DataDog series API
type DataDogExporter struct {
	apiKey string
	site   string // e.g., "datadoghq.com", "datadoghq.eu"
	tags   []string
	prefix string
	client *http.Client
	// endpoint overrides the site-derived URL
	endpoint string
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		if site != "" {
			d.site = site
		}
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

func WithDataDogHTTPClient(c *http.Client) DataDogOption {
	return func(d *DataDogExporter) {
		d.client = c
	}
}

// WithDataDogEndpoint sends series to url instead of the site's API.
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

func NewDataDogExporter(apiKey string, opts ...DataDogOption) *DataDogExporter {
	d := &DataDogExporter{
		apiKey: apiKey,
		site:   "datadoghq.com",
		prefix: "webmatch",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DataDogExporter) Name() string {
	return "datadog"
}

// datadogMetric represents a metric in DataDog format
type datadogMetric struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points [][]any  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

func (d *DataDogExporter) Export(s *Snapshot) error {
	if d.apiKey == "" {
		return fmt.Errorf("DataDog API key not configured")
	}

	now := float64(s.Time.Unix())
	gauge := func(name string, value float64, tags ...string) datadogMetric {
		return datadogMetric{
			Metric: d.prefix + "." + name,
			Type:   "gauge",
			Points: [][]any{{now, value}},
			Tags:   append(tags, d.tags...),
		}
	}

	series := []datadogMetric{
		gauge("checks", float64(s.Passed), "result:passed"),
		gauge("checks", float64(s.Failed), "result:failed"),
		gauge("checks", float64(s.Skipped), "result:skipped"),
		gauge("run.duration", s.Duration),
	}

	for _, c := range s.Checks {
		tags := []string{
			"suite:" + c.Suite,
			"check:" + c.Name,
			"target:" + c.Target,
			"matcher:" + c.Matcher,
		}
		success := 0.0
		if c.Passed {
			success = 1
		}
		series = append(series,
			gauge("check.success", success, tags...),
			gauge("check.duration", c.Duration, tags...),
		)
	}

	for _, su := range s.Suites {
		series = append(series,
			gauge("suite.latency.p50", su.P50, "suite:"+su.Suite),
			gauge("suite.latency.p95", su.P95, "suite:"+su.Suite),
			gauge("suite.latency.p99", su.P99, "suite:"+su.Suite),
			gauge("suite.latency.max", su.Max, "suite:"+su.Suite),
		)
	}

	return d.send(series)
}

func (d *DataDogExporter) send(series []datadogMetric) error {
	jsonData, err := json.Marshal(datadogPayload{Series: series})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	url := d.endpoint
	if url == "" {
		url = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
