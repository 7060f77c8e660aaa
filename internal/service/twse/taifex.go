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

// futuresContract is the TX (Taiwan index) futures contract name as the
// TAIFEX download spells it.
const futuresContract = "臺股期貨"

// FuturesOI fetches the TAIFEX institutional open-interest breakdown
// for TX futures. The download endpoint takes a POST form and answers
// CSV: one row per contract and institution category.
func (c *Client) FuturesOI(ctx context.Context, date time.Time) ([]models.FuturesOI, error) {
	day := date.Format("2006/01/02")

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    c.taifexURL + "/cht/3/futContractsDateDown",
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: map[string]string{
			"queryStartDate": day,
			"queryEndDate":   day,
			"commodityId":    "TXF",
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch futures oi: %w", err)
	}

	rows, err := parseFuturesCSV(date, body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domrepo.ErrDataUnavailable
	}
	return rows, nil
}

// Download CSV layout: date, contract, category, then six trading
// columns, then long/short/net open interest as lots-and-value pairs.
func parseFuturesCSV(date time.Time, body []byte) ([]models.FuturesOI, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	out := make([]models.FuturesOI, 0, 3)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse futures csv: %w", err)
		}
		if len(row) < 15 || row[1] != futuresContract {
			continue
		}
		if _, err := time.Parse("2006/01/02", row[0]); err != nil {
			continue
		}
		out = append(out, models.FuturesOI{
			Date:         date,
			Contract:     row[1],
			Category:     row[2],
			LongOI:       util.ParseTWSEInt(row[9]),
			LongOIValue:  util.ParseTWSEInt(row[10]),
			ShortOI:      util.ParseTWSEInt(row[11]),
			ShortOIValue: util.ParseTWSEInt(row[12]),
			NetOI:        util.ParseTWSEInt(row[13]),
		})
	}
	return out, nil
}
