package httpapi

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/headache-forecast/internal/headache"
	"github.com/i474232898/headache-forecast/internal/store"
	"github.com/i474232898/headache-forecast/internal/weather"
)

// Messages returned to clients. Causes are logged, never echoed.
const (
	msgCityRequired   = "都道府県または市区町村を指定してください"
	msgCityNotFound   = "地域名が正しくありません"
	msgFetchFailed    = "データ取得中にエラーが発生しました"
	msgNoHistory      = "指定期間のデータがありません"
	msgShareDisabled  = "共有機能は現在利用できません"
	msgShareFailed    = "チャットへの送信に失敗しました"
	msgInvalidRequest = "リクエストが正しくありません"
)

var validate = validator.New()

var (
	errCityRequired   = errors.New(msgCityRequired)
	errInvalidCountry = errors.New(msgInvalidRequest)
)

// ReportService is what the routes need from weather.Service.
type ReportService interface {
	GetReport(ctx context.Context, loc weather.Location) (weather.Report, error)
	GetHistory(loc weather.Location, from, to time.Time) ([]weather.Report, error)
}

// Sharer posts a report into a chat.
type Sharer interface {
	Share(ctx context.Context, chatID int64, report weather.Report) (int, error)
}

// ErrorHandler renders every error as {"success": false, "error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := msgFetchFailed
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. sharer may be nil.
func RegisterRoutes(app *fiber.App, service ReportService, sharer Sharer) {
	v1 := app.Group("/api/v1")

	v1.Get("/headache", func(c *fiber.Ctx) error {
		locReq, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.GetReport(c.UserContext(), locReq.toLocation())
		if err != nil {
			return reportError(err)
		}

		return c.JSON(newReportResponse(report))
	})

	v1.Get("/headache/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := req.Location.toLocation()
		reports, err := service.GetHistory(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, msgNoHistory)
			}
			return fiber.NewError(fiber.StatusInternalServerError, msgFetchFailed)
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"location": loc,
			"from":     req.From,
			"to":       req.To,
			"reports":  reports,
		})
	})

	v1.Post("/headache/share", func(c *fiber.Ctx) error {
		if sharer == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, msgShareDisabled)
		}

		var req shareRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidRequest)
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidRequest)
		}

		loc := weather.Location{City: req.City, Country: req.Country}
		report, err := service.GetReport(c.UserContext(), loc)
		if err != nil {
			return reportError(err)
		}

		msgID, err := sharer.Share(c.UserContext(), req.ChatID, report)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, msgShareFailed)
		}

		return c.JSON(fiber.Map{
			"success":   true,
			"messageId": msgID,
		})
	})

	v1.Get("/risk", func(c *fiber.Ctx) error {
		var req riskQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"headacheRisk": headache.Classify(req.Pressure, req.Condition),
		})
	})
}

func reportError(err error) error {
	if errors.Is(err, weather.ErrLocationNotFound) {
		return fiber.NewError(fiber.StatusNotFound, msgCityNotFound)
	}
	return fiber.NewError(fiber.StatusInternalServerError, msgFetchFailed)
}

// reportResponse is the payload web and chat clients render.
type reportResponse struct {
	Success        bool                `json:"success"`
	City           string              `json:"city"`
	CurrentWeather weather.Reading     `json:"currentWeather"`
	Forecast       weather.DayForecast `json:"forecast"`
	HeadacheRisk   headache.Verdict    `json:"headacheRisk"`
	FetchedAt      time.Time           `json:"fetchedAt"`
}

func newReportResponse(r weather.Report) reportResponse {
	return reportResponse{
		Success:        true,
		City:           r.Location.City,
		CurrentWeather: r.Current,
		Forecast:       r.Forecast,
		HeadacheRisk:   r.Risk,
		FetchedAt:      r.FetchedAt,
	}
}

// locationQuery holds query parameters for identifying a location.
type locationQuery struct {
	City    string `validate:"required"`
	Country string `validate:"omitempty,len=2"`
}

func (l locationQuery) toLocation() weather.Location {
	return weather.Location{
		City:    l.City,
		Country: l.Country,
	}
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	// Query values point into fasthttp buffers; reports outlive the request.
	q.City = strings.Clone(strings.TrimSpace(c.Query("city")))
	q.Country = strings.Clone(strings.TrimSpace(c.Query("country")))

	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "City" {
					return q, errCityRequired
				}
			}
		}
		return q, errInvalidCountry
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location locationQuery
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// shareRequest is the body of the share endpoint.
type shareRequest struct {
	City    string `json:"city" validate:"required"`
	Country string `json:"country" validate:"omitempty,len=2"`
	ChatID  int64  `json:"chatId" validate:"required"`
}

// riskQuery holds query parameters for the classifier preview.
type riskQuery struct {
	Pressure  float64
	Condition string
}

func (r *riskQuery) bind(c *fiber.Ctx) error {
	p := c.Query("pressure")
	if p == "" {
		return errors.New("pressure query parameter is required")
	}
	v, err := strconv.ParseFloat(p, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("pressure must be a number in hPa")
	}
	r.Pressure = v
	r.Condition = c.Query("condition")
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
