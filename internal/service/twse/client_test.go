package twse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domrepo "TwQuant/internal/domain/repository"
)

func testClient(baseURL string) *Client {
	return New(Config{
		BaseURL:   baseURL,
		TaifexURL: baseURL,
		FxURL:     baseURL,
		Timeout:   5 * time.Second,
	})
}

func TestBarFromRow(t *testing.T) {
	row := []string{"112/06/28", "25,433,143", "14,458,184,405", "568.00", "572.00", "565.00", "569.00", "+5.00", "23,222"}
	b, ok := barFromRow("2330", row)
	if !ok {
		t.Fatalf("row rejected")
	}
	if b.Symbol != "2330" || b.Volume != 25433143 {
		t.Fatalf("bar = %+v", b)
	}
	if b.Date.Year() != 2023 || b.Date.Month() != time.June || b.Date.Day() != 28 {
		t.Fatalf("date = %v", b.Date)
	}
	if b.Open != 568 || b.High != 572 || b.Low != 565 || b.Close != 569 {
		t.Fatalf("ohlc = %+v", b)
	}
}

func TestBarFromRowSuspendedSession(t *testing.T) {
	row := []string{"112/06/28", "0", "0", "--", "--", "--", "--", "0.00", "0"}
	if _, ok := barFromRow("2330", row); ok {
		t.Fatalf("suspended session row must be skipped")
	}
}

func TestFlowFromRow(t *testing.T) {
	row := []string{
		"2330  ", "台積電",
		"20,000,000", "15,000,000", "5,000,000",
		"100", "50", "50",
		"3,000,000", "1,000,000", "2,000,000",
		"600,000",
		"400,000", "100,000", "300,000",
		"500,000", "200,000", "300,000",
		"7,600,000",
	}
	f, ok := flowFromRow(time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC), row)
	if !ok {
		t.Fatalf("row rejected")
	}
	if f.Symbol != "2330" {
		t.Fatalf("symbol = %q", f.Symbol)
	}
	if f.ForeignNet != 5000000 || f.TrustNet != 2000000 || f.TotalNet != 7600000 {
		t.Fatalf("nets = %+v", f)
	}
	// Dealer buy/sell aggregate the self and hedge books.
	if f.DealerBuy != 900000 || f.DealerSell != 300000 || f.DealerNet != 600000 {
		t.Fatalf("dealer = %+v", f)
	}
}

func TestMonthlyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("stockNo"); got != "2330" {
			t.Errorf("stockNo = %q", got)
		}
		if got := r.URL.Query().Get("date"); got != "20230601" {
			t.Errorf("date = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
            "stat": "OK",
            "total": 2,
            "fields": ["日期","成交股數","成交金額","開盤價","最高價","最低價","收盤價","漲跌價差","成交筆數"],
            "data": [
                ["112/06/01","10,000","5,700,000","570.00","575.00","568.00","571.00","+1.00","9"],
                ["112/06/02","12,000","6,900,000","571.00","578.00","570.00","575.00","+4.00","11"]
            ]
        }`))
	}))
	defer srv.Close()

	bars, err := testClient(srv.URL).MonthlyBars(context.Background(), "2330", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("monthly bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[1].Close != 575 || bars[1].Volume != 12000 {
		t.Fatalf("second bar = %+v", bars[1])
	}
}

func TestMonthlyBarsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat": "很抱歉，沒有符合條件的資料!", "total": 0, "data": []}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).MonthlyBars(context.Background(), "2330", time.Now())
	if !errors.Is(err, domrepo.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestTurnoverPicksRequestedSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
            "stat": "OK",
            "fields": ["日期","成交股數","成交金額","成交筆數","發行量加權股價指數","漲跌點數"],
            "data": [
                ["112/06/27","5,000,000","300,000,000,000","1,500,000","16,900.50","-20.10"],
                ["112/06/28","6,000,000","350,000,000,000","1,600,000","17,000.50","100.00"]
            ]
        }`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Turnover(context.Background(), time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("turnover: %v", err)
	}
	if got.TradeValue != 350000000000 || got.Index != 17000.50 {
		t.Fatalf("turnover = %+v", got)
	}

	_, err = testClient(srv.URL).Turnover(context.Background(), time.Date(2023, 6, 29, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domrepo.ErrDataUnavailable) {
		t.Fatalf("unpublished session err = %v", err)
	}
}

func TestParseFuturesCSV(t *testing.T) {
	body := []byte(
		"日期,商品名稱,身份別,多方交易口數,多方契約金額,空方交易口數,空方契約金額,多空交易口數淨額,多空契約金額淨額,多方未平倉口數,多方未平倉契約金額,空方未平倉口數,空方未平倉契約金額,多空未平倉口數淨額,多空未平倉契約金額淨額\n" +
			"2023/06/28,臺股期貨,自營商,10000,34000000,9000,30600000,1000,3400000,15000,51000000,12000,40800000,3000,10200000\n" +
			"2023/06/28,臺股期貨,投信,500,1700000,2000,6800000,-1500,-5100000,2500,8500000,42000,142800000,-39500,-134300000\n" +
			"2023/06/28,臺股期貨,外資,60000,204000000,55000,187000000,5000,17000000,80000,272000000,60000,204000000,20000,68000000\n" +
			"2023/06/28,小型臺指,外資,1,1,1,1,0,0,1,1,1,1,0,0\n")

	date := time.Date(2023, 6, 28, 0, 0, 0, 0, time.UTC)
	rows, err := parseFuturesCSV(date, body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	foreign := rows[2]
	if foreign.Category != "外資" || foreign.LongOI != 80000 || foreign.ShortOI != 60000 || foreign.NetOI != 20000 {
		t.Fatalf("foreign = %+v", foreign)
	}
}

func TestParseFxCSV(t *testing.T) {
	body := []byte(
		"幣別,匯率,現金,即期,遠期10天\n" +
			"USD,本行買入,31.065,31.415,31.395\n" +
			"USD,本行賣出,31.735,31.515,31.495\n" +
			"HKD,本行買入,3.838,3.958,3.949\n" +
			"HKD,本行賣出,4.043,4.018,4.012\n")

	rate, err := parseFxCSV(time.Date(2023, 6, 28, 10, 0, 0, 0, time.UTC), body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rate.Currency != "USD" {
		t.Fatalf("currency = %q", rate.Currency)
	}
	if rate.CashBuy != 31.065 || rate.SpotBuy != 31.415 {
		t.Fatalf("buy side = %+v", rate)
	}
	if rate.CashSell != 31.735 || rate.SpotSell != 31.515 {
		t.Fatalf("sell side = %+v", rate)
	}
}

func TestParseFxCSVMissingUSD(t *testing.T) {
	body := []byte("幣別,匯率,現金,即期\nHKD,本行買入,3.838,3.958\nHKD,本行賣出,4.043,4.018\n")
	_, err := parseFxCSV(time.Now(), body)
	if !errors.Is(err, domrepo.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}
