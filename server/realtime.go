package server

import (
	"net/http"
	"time"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/labstack/echo/v4"
)

type ticketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresAt string `json:"expires_at"`
}

// pinColumn is the column a subscription filter must pin to a single
// project, per table
var pinColumn = map[string]string{
	tableProjects:      "id",
	tableComments:      "project_id",
	tableCollaborators: "project_id",
}

// handleRealtimeTicket issues a short-lived ticket for opening a socket.
// Browsers cannot set headers on websocket requests, so the session token
// is exchanged for a ticket sent in the query string.
func (s *Server) handleRealtimeTicket(c echo.Context) error {
	ticket, err := realtime.IssueTicket(s.jwtSecret, currentUser(c), realtime.TicketTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ticketResponse{
		Ticket:    ticket,
		ExpiresAt: time.Now().Add(realtime.TicketTTL).Format(time.RFC3339),
	})
}

// handleRealtime upgrades to a websocket streaming the changes of one
// project's rows in one table
func (s *Server) handleRealtime(c echo.Context) error {
	userID, err := realtime.ParseTicket(s.jwtSecret, c.QueryParam("ticket"))
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid ticket")
	}

	table := c.QueryParam("table")
	column, ok := pinColumn[table]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "unknown table")
	}
	event, err := realtime.ParseEventType(c.QueryParam("event"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	filter, err := realtime.ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	projectID, ok := filter.Eq(column)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "filter must pin "+column)
	}
	if _, _, err := s.permissionsFor(c, projectID, userID); err != nil {
		return err
	}

	ch := realtime.Channel{Table: table, Event: event, Filter: filter}
	logger.Debug("Realtime subscribe", logger.F("user", userID), logger.F("channel", ch.Key()))

	if err := realtime.ServeWS(s.hub, c.Response(), c.Request(), ch, s.realtimeSettings); err != nil {
		logger.Warn("Realtime socket failed", logger.F("channel", ch.Key()), logger.F("error", err))
	}
	return nil
}
