package smoke

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// Smoke drives a full journal round trip against a running instance:
// register, open a position, sell it down to zero and verify the summary and
// stats endpoints agree.
type Smoke struct {
	Log    *logger.Entry
	client *resty.Client
}

type apiEnvelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func (s *Smoke) Start() error {
	config := GetConfig()

	s.client = resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(time.Duration(config.Timeout) * time.Second).
		SetHeader("Content-Type", "application/json")

	if err := s.register(); err != nil {
		return err
	}

	positionID, err := s.openPosition()
	if err != nil {
		return err
	}
	if err := s.sellOut(positionID); err != nil {
		return err
	}
	if err := s.verifyClosed(positionID); err != nil {
		return err
	}
	if err := s.verifyStats(); err != nil {
		return err
	}

	s.Log.Info("Smoke run passed")
	return nil
}

func (s *Smoke) register() error {
	email := fmt.Sprintf("smoke-%s@example.com", uuid.NewString())

	var out apiEnvelope
	resp, err := s.client.R().
		SetBody(map[string]interface{}{
			"name":                  "Smoke Runner",
			"email":                 email,
			"password":              "smoke-password",
			"password_confirmation": "smoke-password",
		}).
		SetResult(&out).
		Post("/api/v1/auth/register")
	if err != nil {
		return fmt.Errorf("register request failed: %w", err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("register returned %d: %s", resp.StatusCode(), resp.String())
	}

	token, ok := out.Data["token"].(string)
	if !ok || token == "" {
		return fmt.Errorf("register response carried no token")
	}

	s.client.SetAuthToken(token)
	s.Log.WithField("email", email).Info("Registered smoke user")
	return nil
}

func (s *Smoke) openPosition() (float64, error) {
	var out apiEnvelope
	resp, err := s.client.R().
		SetBody(map[string]interface{}{
			"emiten":      "BBCA",
			"type":        "BUY",
			"entry_price": "9250",
			"stop_loss":   "9000",
			"volume":      5,
			"strategy":    "smoke",
		}).
		SetResult(&out).
		Post("/api/v1/trading/positions")
	if err != nil {
		return 0, fmt.Errorf("create position request failed: %w", err)
	}
	if resp.StatusCode() != 201 {
		return 0, fmt.Errorf("create position returned %d: %s", resp.StatusCode(), resp.String())
	}

	id, ok := out.Data["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("create position response carried no id")
	}

	s.Log.WithField("position_id", id).Info("Opened position")
	return id, nil
}

func (s *Smoke) sellOut(positionID float64) error {
	var out apiEnvelope
	resp, err := s.client.R().
		SetBody(map[string]interface{}{
			"type":   "SELL",
			"price":  "9500",
			"volume": 5,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/api/v1/trading/positions/%.0f/transaction", positionID))
	if err != nil {
		return fmt.Errorf("sell request failed: %w", err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("sell returned %d: %s", resp.StatusCode(), resp.String())
	}

	if status, _ := out.Data["status"].(string); status != "CLOSED" {
		return fmt.Errorf("position status after full sell is %q, want CLOSED", status)
	}

	s.Log.Info("Position sold out")
	return nil
}

func (s *Smoke) verifyClosed(positionID float64) error {
	var out apiEnvelope
	resp, err := s.client.R().
		SetResult(&out).
		Get(fmt.Sprintf("/api/v1/trading/positions/%.0f", positionID))
	if err != nil {
		return fmt.Errorf("show position request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("show position returned %d: %s", resp.StatusCode(), resp.String())
	}

	summary, ok := out.Data["summary"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("position carried no summary")
	}
	if volume, _ := summary["total_volume"].(float64); volume != 0 {
		return fmt.Errorf("closed position still reports volume %v", volume)
	}

	s.Log.WithField("realized_pnl", summary["realized_pnl"]).Info("Summary verified")
	return nil
}

func (s *Smoke) verifyStats() error {
	var out apiEnvelope
	resp, err := s.client.R().
		SetResult(&out).
		Get("/api/v1/trading/stats/summary")
	if err != nil {
		return fmt.Errorf("stats request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("stats returned %d: %s", resp.StatusCode(), resp.String())
	}

	s.Log.Info("Stats verified")
	return nil
}
