package mlxscraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/underlx/servicealerts/scraper"
	"github.com/underlx/servicealerts/types"
)

// AlertsScraper is a scraper for the Metro de Lisboa service alerts endpoint
type AlertsScraper struct {
	log *log.Logger

	EndpointURL string
	BearerToken string
	HTTPClient  *http.Client
	// LineIDs maps the line names used by the endpoint to line IDs
	LineIDs map[string]string
	// Now defaults to time.Now
	Now func() time.Time
}

var _ scraper.DisruptionScraper = (*AlertsScraper)(nil)

// ID returns the ID of this scraper
func (sc *AlertsScraper) ID() string {
	return "sc-pt-ml-alerts"
}

// Init initializes the scraper
func (sc *AlertsScraper) Init(log *log.Logger) {
	sc.log = log

	if sc.HTTPClient == nil {
		sc.HTTPClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if sc.Now == nil {
		sc.Now = time.Now
	}
}

type responseStructAlerts struct {
	Resposta []serviceAlert `json:"resposta"`
	Codigo   string         `json:"codigo"`
}

type serviceAlert struct {
	ID        string   `json:"id"`
	Titulo    string   `json:"titulo"`
	Descricao string   `json:"descricao"`
	URL       string   `json:"url"`
	Gravidade string   `json:"gravidade"`
	Linhas    []string `json:"linhas"`
	Estacoes  []string `json:"estacoes"`
	Inicio    string   `json:"inicio"`
	Fim       string   `json:"fim"`
}

// Fetch returns the currently published service alerts
func (sc *AlertsScraper) Fetch(ctx context.Context) ([]types.ExternalDisruptionData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.EndpointURL+"/alertas", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", sc.headerToken())
	response, err := sc.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.ContentLength > 1024*1024 || response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code (%d) in response, or response body unexpectedly big", response.StatusCode)
	}

	responseBytes, err := io.ReadAll(io.LimitReader(response.Body, 1024*1024))
	if err != nil {
		return nil, err
	}

	var data responseStructAlerts
	err = json.Unmarshal(responseBytes, &data)
	if err != nil {
		return nil, err
	}
	if data.Codigo != "" && data.Codigo != "200" {
		return nil, fmt.Errorf("service alerts endpoint returned code %s", data.Codigo)
	}

	retrievedAt := sc.Now().UTC()
	alerts := []types.ExternalDisruptionData{}
	for _, a := range data.Resposta {
		if a.ID == "" {
			sc.log.Println("Skipping service alert without ID:", a.Titulo)
			continue
		}
		alert := types.ServiceAlert{
			AlertID:     a.ID,
			Summary:     strings.TrimSpace(a.Titulo),
			Description: strings.TrimSpace(a.Descricao),
			URL:         a.URL,
			Severity:    a.Gravidade,
			Lines:       sc.lineIDs(a.Linhas),
			Stops:       a.Estacoes,
			RetrievedAt: retrievedAt,
		}
		alert.ActiveFrom, err = parseAlertTime(a.Inicio)
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", a.ID, err)
		}
		alert.ActiveUntil, err = parseAlertTime(a.Fim)
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", a.ID, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (sc *AlertsScraper) lineIDs(names []string) []string {
	ids := make([]string, len(names))
	for i, name := range names {
		if id, ok := sc.LineIDs[strings.ToLower(strings.TrimSpace(name))]; ok {
			ids[i] = id
		} else {
			// kept as-is so that parsers can tell it is unknown
			ids[i] = name
		}
	}
	return ids
}

func parseAlertTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (sc *AlertsScraper) headerToken() string {
	return "Bearer " + sc.BearerToken
}
