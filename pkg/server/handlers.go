// Copyright 2023 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package server

import (
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binkynet/GpioWorker/pkg/model"
)

type triggerRequest struct {
	Trigger model.Trigger `json:"trigger"`
}

type driveRequest struct {
	Level int `json:"level"`
}

type handlerResponse struct {
	Pin     model.PinID `json:"pin"`
	Bound   bool        `json:"bound"`
	Removed bool        `json:"removed,omitempty"`
}

// newRouter builds the HTTP routes of the server.
func (s *Server) newRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	e.GET("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	e.GET("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.POST("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	e.GET("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))

	api := e.Group("/api")
	api.GET("/status", s.handleStatus)
	api.PUT("/pins/:pin/trigger", s.handleSetTrigger)
	api.POST("/pins/:pin/handler", s.handleAddHandler)
	api.DELETE("/pins/:pin/handler", s.handleRemoveHandler)
	api.POST("/pins/:pin/drive", s.handleDrive)
	return e
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Status())
}

func (s *Server) handleSetTrigger(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	var req triggerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.SetTrigger(c.Request().Context(), pin, req.Trigger); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) handleAddHandler(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	if err := s.service.AddHandler(pin); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, handlerResponse{Pin: pin, Bound: true})
}

func (s *Server) handleRemoveHandler(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	removed := s.service.RemoveHandler(pin)
	return c.JSON(http.StatusOK, handlerResponse{Pin: pin, Removed: removed})
}

func (s *Server) handleDrive(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	var req driveRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.service.Drive(pin, req.Level != 0); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// errorHandler maps errors onto HTTP status codes.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case model.IsInvalidArgument(err):
		code = http.StatusBadRequest
	case model.IsUnsupported(err):
		code = http.StatusNotImplemented
	default:
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		}
	}
	if code >= http.StatusInternalServerError {
		s.log.Warn().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	if c.Response().Committed {
		return
	}
	c.JSON(code, map[string]string{"error": msg})
}

func pinParam(c echo.Context) (model.PinID, error) {
	v, err := strconv.ParseUint(c.Param("pin"), 10, 8)
	if err != nil || v >= model.MaxPins {
		return 0, model.InvalidArgument("invalid pin '%s'", c.Param("pin"))
	}
	return model.PinID(v), nil
}
