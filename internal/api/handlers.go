package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/dogbreed-go/internal/errors"
	"github.com/tphakala/dogbreed-go/internal/logger"
	"github.com/tphakala/dogbreed-go/internal/prediction"
)

// Response messages
const (
	WelcomeMessage      = "Welcome to the Dog Breed Identification API!"
	GenericErrorMessage = "There was an error processing the image."
	MissingURLMessage   = "image_url is required."
)

// PredictRequest is the body of POST /predict
type PredictRequest struct {
	ImageURL string `json:"image_url"`
}

// PredictResponse is returned by POST /predict
type PredictResponse struct {
	LabelNumber int `json:"label_number"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": WelcomeMessage})
}

func (s *Server) predict(c echo.Context) error {
	var req PredictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body.").SetInternal(err)
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.ImageURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, MissingURLMessage)
	}
	if s.predictor == nil {
		return prediction.ErrModelUnavailable
	}

	label, err := s.predictor.Predict(c.Request().Context(), req.ImageURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PredictResponse{LabelNumber: label})
}

func (s *Server) listBreeds(c echo.Context) error {
	if s.breeds == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Breed labels are not loaded.")
	}
	return c.JSON(http.StatusOK, s.breeds.Breeds())
}

func (s *Server) getBreed(c echo.Context) error {
	if s.breeds == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Breed labels are not loaded.")
	}
	label, err := strconv.Atoi(c.Param("label"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Label must be an integer.")
	}
	breed, ok := s.breeds.Breed(label)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Breed not found.")
	}
	return c.JSON(http.StatusOK, breed)
}

// handleError maps errors to responses. "No dog detected" is the only
// pipeline outcome shown to clients; every other pipeline failure becomes
// the generic message. Echo HTTP errors keep their code and message.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, detail := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.WithContext(c.Request().Context()).Error("request failed",
			logger.String("path", c.Path()),
			logger.Error(err))
	}

	var respErr error
	if c.Request().Method == http.MethodHead {
		respErr = c.NoContent(code)
	} else {
		respErr = c.JSON(code, ErrorResponse{Detail: detail})
	}
	if respErr != nil {
		s.log.Warn("failed to write error response", logger.Error(respErr))
	}
}

// statusFor returns the HTTP status and client-facing message for err
func statusFor(err error) (int, string) {
	if errors.Is(err, prediction.ErrNoDogDetected) {
		return http.StatusBadRequest, prediction.ErrNoDogDetected.Error()
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}

	return http.StatusInternalServerError, GenericErrorMessage
}
