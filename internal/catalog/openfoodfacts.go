// Copyright 2024 HealthAI Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog looks up packaged products in OpenFoodFacts.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/your-org/healthai-assistant/internal/domain"
	"github.com/your-org/healthai-assistant/internal/resilience"
)

const (
	DefaultBaseURL     = "https://world.openfoodfacts.org/api/v2/product/"
	DefaultPageURL     = "https://world.openfoodfacts.org/product/"
	DefaultUserAgent   = "HealthAI-Assistant/1.0"
	notAvailable       = "Not available"
	maxResponseBytes   = 5 << 20
	defaultHTTPTimeout = 10 * time.Second
)

var tracer = otel.Tracer("github.com/your-org/healthai-assistant/internal/catalog")

// errNotFound is returned by fetch when the catalog has no such product.
var errNotFound = errors.New("product not found")

// Config configures the catalog client.
type Config struct {
	BaseURL   string
	PageURL   string
	UserAgent string
	Timeout   time.Duration
	Backoff   resilience.BackoffConfig
}

// Client fetches products from the catalog API. Lookups never fail: a
// missing product and an unreachable catalog both yield nil.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a catalog client, filling unset config with defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.PageURL == "" {
		cfg.PageURL = DefaultPageURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Lookup returns the normalised product, or nil when it is unknown or the
// catalog could not be reached.
func (c *Client) Lookup(ctx context.Context, barcode string) *domain.ProductInfo {
	ctx, span := tracer.Start(ctx, "catalog.Lookup")
	span.SetAttributes(attribute.String("barcode", barcode))
	defer span.End()

	var body []byte
	err := resilience.WithExponentialBackoff(ctx, c.logger, c.cfg.Backoff, func(ctx context.Context) error {
		b, err := c.fetch(ctx, barcode)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if errors.Is(err, errNotFound) {
		c.logger.Info("Product not in catalog", zap.String("barcode", barcode))
		span.SetAttributes(attribute.Bool("found", false))
		return nil
	}
	if err != nil {
		c.logger.Warn("Catalog lookup failed", zap.String("barcode", barcode), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog unavailable")
		return nil
	}

	product := parseProduct(body, barcode, c.cfg.PageURL)
	span.SetAttributes(attribute.Bool("found", product != nil))
	if product == nil {
		c.logger.Info("Catalog reported no product", zap.String("barcode", barcode))
	}
	return product
}

// Ping checks that the catalog host answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, barcode string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+barcode, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resilience.Permanent(errNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, resilience.Permanent(fmt.Errorf("catalog returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	return body, nil
}

// parseProduct reshapes a catalog response. It returns nil unless the status
// flag is 1 and a product object is present.
func parseProduct(body []byte, barcode, pageURL string) *domain.ProductInfo {
	if !gjson.ValidBytes(body) {
		return nil
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("status").Int() != 1 {
		return nil
	}
	p := doc.Get("product")
	if !p.IsObject() {
		return nil
	}

	n := p.Get("nutriments")
	return &domain.ProductInfo{
		Name:        stringOr(p.Get("product_name"), "Unknown Product"),
		Brand:       stringOr(p.Get("brands"), "Unknown Brand"),
		Categories:  stringOr(p.Get("categories"), "Unknown"),
		Ingredients: stringOr(p.Get("ingredients_text"), notAvailable),
		Barcode:     barcode,
		URL:         pageURL + barcode,
		Nutrition: domain.Nutrition{
			EnergyKcal:    optFloat(n.Get("energy-kcal_100g")),
			Proteins:      optFloat(n.Get("proteins_100g")),
			Carbohydrates: optFloat(n.Get("carbohydrates_100g")),
			Sugars:        optFloat(n.Get("sugars_100g")),
			Fat:           optFloat(n.Get("fat_100g")),
			SaturatedFat:  optFloat(n.Get("saturated-fat_100g")),
			Fiber:         optFloat(n.Get("fiber_100g")),
			Salt:          optFloat(n.Get("salt_100g")),
			Sodium:        optFloat(n.Get("sodium_100g")),
		},
		Quality: domain.QualityScores{
			NutriScore: stringOr(p.Get("nutrition_grades"), notAvailable),
			NovaGroup:  optInt(p.Get("nova_group")),
			EcoScore:   stringOr(p.Get("ecoscore_grade"), notAvailable),
		},
		Additives: stringList(p.Get("additives_tags")),
		Allergens: stringList(p.Get("allergens_tags")),
		Labels:    stringList(p.Get("labels_tags")),
	}
}

func stringOr(r gjson.Result, fallback string) string {
	if r.Type != gjson.String && r.Type != gjson.Number {
		return fallback
	}
	if s := strings.TrimSpace(r.String()); s != "" {
		return s
	}
	return fallback
}

// optFloat accepts numbers and numeric strings; anything else is absent.
func optFloat(r gjson.Result) *float64 {
	switch r.Type {
	case gjson.Number:
		v := r.Float()
		return &v
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return nil
		}
		if parsed := gjson.Parse(s); parsed.Type == gjson.Number {
			v := parsed.Float()
			return &v
		}
	}
	return nil
}

func optInt(r gjson.Result) *int {
	if f := optFloat(r); f != nil {
		v := int(*f)
		return &v
	}
	return nil
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	for _, item := range r.Array() {
		if item.Type == gjson.String && item.Str != "" {
			out = append(out, item.Str)
		}
	}
	return out
}
