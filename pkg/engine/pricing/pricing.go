// Package pricing estimates on-demand instance costs via the AWS Pricing API,
// with a local JSON cache to keep repeat passes cheap.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// hoursPerMonth converts hourly list prices to monthly estimates.
const hoursPerMonth = 730

type PriceRecord struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Client wraps the AWS Pricing API.
type Client struct {
	logger    *slog.Logger
	svc       *pricing.Client
	cache     map[string]PriceRecord
	mu        sync.RWMutex
	cachePath string
	ttl       time.Duration
}

// NewClient initializes the pricing client. Resolves cache path and defaults.
func NewClient(ctx context.Context, logger *slog.Logger, cacheDir string) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	os.MkdirAll(cacheDir, 0755)

	// The pricing API is only served out of us-east-1.
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:    logger,
		svc:       pricing.NewFromConfig(cfg),
		cache:     make(map[string]PriceRecord),
		cachePath: filepath.Join(cacheDir, "reaper-pricing.json"),
		ttl:       15 * 24 * time.Hour,
	}

	c.loadCache()
	return c, nil
}

func (c *Client) loadCache() {
	data, err := os.ReadFile(c.cachePath)
	if err == nil {
		json.Unmarshal(data, &c.cache)
	}
}

func (c *Client) saveCache() {
	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err == nil {
		os.WriteFile(c.cachePath, data, 0644)
	}
}

// InstanceMonthlyCost estimates the monthly on-demand cost of an instance
// type. Assumes 730h/month, Linux, shared tenancy.
func (c *Client) InstanceMonthlyCost(ctx context.Context, region, instanceType string) (float64, error) {
	cacheKey := fmt.Sprintf("ec2-%s-%s", region, instanceType)

	c.mu.RLock()
	record, ok := c.cache[cacheKey]
	c.mu.RUnlock()

	if ok && time.Since(time.Unix(record.Timestamp, 0)) < c.ttl {
		return record.Price * hoursPerMonth, nil
	}

	price, err := c.fetchHourlyPrice(ctx, region, instanceType)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cache[cacheKey] = PriceRecord{Price: price, Timestamp: time.Now().Unix()}
	c.saveCache()
	c.mu.Unlock()

	return price * hoursPerMonth, nil
}

func (c *Client) fetchHourlyPrice(ctx context.Context, region, instanceType string) (float64, error) {
	filters := []types.Filter{
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("productFamily"),
			Value: aws.String("Compute Instance"),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("serviceCode"),
			Value: aws.String("AmazonEC2"),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("regionCode"),
			Value: aws.String(region),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("instanceType"),
			Value: aws.String(instanceType),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("tenancy"),
			Value: aws.String("Shared"),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("operatingSystem"),
			Value: aws.String("Linux"),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("preInstalledSw"),
			Value: aws.String("NA"),
		},
	}

	input := &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters:     filters,
		MaxResults:  aws.Int32(1),
	}

	out, err := c.svc.GetProducts(ctx, input)
	if err != nil {
		return 0, err
	}

	if len(out.PriceList) == 0 {
		return 0, fmt.Errorf("no pricing found for %s %s", region, instanceType)
	}

	return parsePriceFromJSON(out.PriceList[0])
}

func parsePriceFromJSON(jsonStr string) (float64, error) {
	type PriceDimension struct {
		PricePerUnit map[string]string `json:"pricePerUnit"`
	}
	type Term struct {
		PriceDimensions map[string]PriceDimension `json:"priceDimensions"`
	}
	type Product struct {
		Terms map[string]map[string]Term `json:"terms"` // OnDemand -> SKU -> Term
	}

	var p Product
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		return 0, err
	}

	if onDemand, ok := p.Terms["OnDemand"]; ok {
		for _, term := range onDemand {
			for _, dim := range term.PriceDimensions {
				if valStr, ok := dim.PricePerUnit["USD"]; ok {
					val, err := strconv.ParseFloat(valStr, 64)
					if err == nil {
						return val, nil
					}
				}
			}
		}
	}
	return 0, fmt.Errorf("price not found in JSON")
}
