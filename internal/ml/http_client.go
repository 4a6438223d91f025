package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

const defaultBatchSize = 1000

// HTTPClassifier scores feature tables with a remote classifier service
type HTTPClassifier struct {
	transport    *Transport
	baseURL      string
	token        string
	modelVersion string
	batchSize    int
	logger       *logrus.Logger
}

// NewHTTPClassifier creates a classifier client for the model service
func NewHTTPClassifier(cfg *config.ModelServiceConfig, logger *logrus.Logger) (*HTTPClassifier, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("model service url is required")
	}
	transportCfg := DefaultTransportConfig()
	if cfg.TimeoutSeconds > 0 {
		transportCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxRetries >= 0 {
		transportCfg.MaxRetries = cfg.MaxRetries
	}
	if cfg.RateLimit > 0 {
		transportCfg.RateLimit = cfg.RateLimit
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &HTTPClassifier{
		transport:    NewTransport(transportCfg, logger),
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		token:        cfg.Token,
		modelVersion: cfg.ModelVersion,
		batchSize:    batchSize,
		logger:       logger,
	}, nil
}

// PredictRequest is the scoring payload. Missing features are null.
type PredictRequest struct {
	ModelVersion string       `json:"model_version"`
	Columns      []string     `json:"columns"`
	Rows         [][]*float64 `json:"rows"`
}

// PredictResponse carries one positive-class probability per request row
type PredictResponse struct {
	ModelVersion  string    `json:"model_version"`
	Probabilities []float64 `json:"probabilities"`
}

// FeatureImportanceResponse lists the model's feature importances
type FeatureImportanceResponse struct {
	ModelVersion string                     `json:"model_version"`
	Features     []models.FeatureImportance `json:"features"`
}

// ModelVersion returns the configured model version
func (c *HTTPClassifier) ModelVersion() string {
	return c.modelVersion
}

// PredictProba scores every row of table in batches
func (c *HTTPClassifier) PredictProba(ctx context.Context, table *features.FeatureTable) ([]float64, error) {
	start := time.Now()
	proba := make([]float64, 0, table.Len())
	for offset := 0; offset < table.Len(); offset += c.batchSize {
		end := offset + c.batchSize
		if end > table.Len() {
			end = table.Len()
		}
		batch, err := c.predictBatch(ctx, table.Columns, table.Rows[offset:end])
		if err != nil {
			MLPredictionsTotal.WithLabelValues(c.modelVersion, "error").Add(float64(end - offset))
			return nil, err
		}
		proba = append(proba, batch...)
	}

	MLPredictionLatency.WithLabelValues(c.modelVersion).Observe(time.Since(start).Seconds())
	MLPredictionsTotal.WithLabelValues(c.modelVersion, "success").Add(float64(len(proba)))
	c.logger.WithFields(logrus.Fields{
		"rows":          len(proba),
		"model_version": c.modelVersion,
		"duration":      time.Since(start),
	}).Debug("Rows scored by model service")
	return proba, nil
}

func (c *HTTPClassifier) predictBatch(ctx context.Context, columns []string, rows []features.FeatureRow) ([]float64, error) {
	payload := PredictRequest{
		ModelVersion: c.modelVersion,
		Columns:      columns,
		Rows:         make([][]*float64, len(rows)),
	}
	for i, row := range rows {
		values := make([]*float64, len(row.Values))
		for j, v := range row.Values {
			if math.IsNaN(v) {
				continue
			}
			value := v
			values[j] = &value
		}
		payload.Rows[i] = values
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp PredictResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Probabilities) != len(rows) {
		return nil, fmt.Errorf("%w: %d probabilities for %d rows", ErrInvalidPrediction, len(resp.Probabilities), len(rows))
	}
	for _, p := range resp.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: probability %v out of range", ErrInvalidPrediction, p)
		}
	}
	return resp.Probabilities, nil
}

// FeatureImportance fetches the model's feature importances
func (c *HTTPClassifier) FeatureImportance(ctx context.Context) ([]models.FeatureImportance, error) {
	endpoint := c.baseURL + "/feature-importance"
	if c.modelVersion != "" {
		endpoint += "?" + url.Values{"model_version": {c.modelVersion}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp FeatureImportanceResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Features, nil
}

func (c *HTTPClassifier) doJSON(ctx context.Context, req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		MLServiceErrorsTotal.WithLabelValues(req.URL.Path, "network").Inc()
		return err
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		MLServiceErrorsTotal.WithLabelValues(req.URL.Path, "http_error").Inc()
		return fmt.Errorf("%w: status %d: %s", ErrInvalidResponse, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		MLServiceErrorsTotal.WithLabelValues(req.URL.Path, "decode").Inc()
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Close releases idle connections
func (c *HTTPClassifier) Close() error {
	return c.transport.Close()
}
