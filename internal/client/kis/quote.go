package kis

import (
	"context"
	"fmt"
	"net/url"
)

const (
	pricePath = "/uapi/overseas-price/v1/quotations/price"
	trPrice   = "HHDFS00000300"
)

// The quotation API keys exchanges differently than the trading API.
var quoteExchangeCodes = map[string]string{
	"NASD": "NAS",
	"NYSE": "NYS",
	"AMEX": "AMS",
	"TKSE": "TSE",
	"SEHK": "HKS",
	"SHAA": "SHS",
	"SZAA": "SZS",
	"HASE": "HNX",
	"VNSE": "HSX",
}

// GetPrice returns the last traded price for one instrument
// (v1 overseas-price current price).
func (c *Client) GetPrice(ctx context.Context, exchangeCd, code string) (*Quote, error) {
	if code == "" {
		return nil, fmt.Errorf("kis: instrument code is required")
	}
	excd, ok := quoteExchangeCodes[exchangeCd]
	if !ok {
		excd = exchangeCd
	}
	query := url.Values{}
	query.Set("AUTH", "")
	query.Set("EXCD", excd)
	query.Set("SYMB", code)

	raw, err := c.doGet(ctx, pricePath, trPrice, query)
	if err != nil {
		return nil, err
	}
	var resp priceResponse
	if err := unwrap(raw, &resp); err != nil {
		return nil, err
	}
	last := parseAmount(resp.Output.Last)
	if last <= 0 {
		return nil, fmt.Errorf("kis: no price for %s", code)
	}
	return &Quote{Code: code, Last: last}, nil
}
