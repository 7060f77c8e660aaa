package twse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"TwQuant/internal/domain/models"
	domrepo "TwQuant/internal/domain/repository"
	pkghttp "TwQuant/pkg/http"
	"TwQuant/pkg/util"
)

// FxRate fetches the Bank of Taiwan daily board as CSV and extracts the
// USD quote. Each currency publishes two rows, bank-buy first then
// bank-sell, with cash and spot rates in fixed columns.
func (c *Client) FxRate(ctx context.Context) (*models.FxRate, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.fxURL + "/xrt/flcsv/0/day",
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch fx: %w", err)
	}
	return parseFxCSV(time.Now().In(util.Taipei), body)
}

func parseFxCSV(date time.Time, body []byte) (*models.FxRate, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rate := &models.FxRate{
		Date:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		Currency: "USD",
	}
	seen := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse fx csv: %w", err)
		}
		if len(row) < 4 || row[0] != "USD" {
			continue
		}
		switch seen {
		case 0:
			rate.CashBuy = util.ParseTWSEFloat(row[2])
			rate.SpotBuy = util.ParseTWSEFloat(row[3])
		case 1:
			rate.CashSell = util.ParseTWSEFloat(row[2])
			rate.SpotSell = util.ParseTWSEFloat(row[3])
		}
		seen++
	}
	if seen < 2 {
		return nil, domrepo.ErrDataUnavailable
	}
	return rate, nil
}
