// Package api exposes the protocol's four core components over HTTP and a
// websocket event feed, mirroring the teacher's echo-based DAOServer and its
// gorilla/websocket EventBus.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aegis-protocol/aegis-core/core"
	"github.com/aegis-protocol/aegis-core/crypto"
	"github.com/aegis-protocol/aegis-core/event"
	"github.com/aegis-protocol/aegis-core/metrics"
	"github.com/aegis-protocol/aegis-core/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EventKind tags a broadcast message's origin, the same way the teacher's
// EventType distinguishes proposal/vote/treasury events.
type EventKind string

const (
	EventDonationRecorded EventKind = "donation_recorded"
	EventVoteCast         EventKind = "vote_cast"
	EventProposalExecuted EventKind = "proposal_executed"
	EventSBTMinted        EventKind = "sbt_minted"
	EventDeclared         EventKind = "event_declared"
)

// BroadcastEvent is one message sent to every connected websocket client.
type BroadcastEvent struct {
	Kind EventKind   `json:"kind"`
	Data interface{} `json:"data"`
}

// EventBus fans out BroadcastEvents to every connected websocket client,
// grounded on the teacher's EventBus register/unregister/broadcast loop.
type EventBus struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

func newEventBus() *EventBus {
	return &EventBus{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (eb *EventBus) run() {
	for {
		select {
		case client := <-eb.register:
			eb.clients[client] = true
		case client := <-eb.unregister:
			if _, ok := eb.clients[client]; ok {
				delete(eb.clients, client)
				client.Close()
			}
		case message := <-eb.broadcast:
			for client := range eb.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(eb.clients, client)
					client.Close()
				}
			}
		}
	}
}

// Server is the HTTP/WebSocket API surface over a Runtime.
type Server struct {
	ListenAddr string

	runtime  *core.Runtime
	metrics  *metrics.Registry
	eventBus *EventBus
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewServer constructs a Server bound to runtime, reporting to reg.
func NewServer(listenAddr string, runtime *core.Runtime, reg *metrics.Registry) *Server {
	eventBus := newEventBus()
	go eventBus.run()

	return &Server{
		ListenAddr: listenAddr,
		runtime:    runtime,
		metrics:    reg,
		eventBus:   eventBus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logrus.New(),
	}
}

// Start builds the echo router and blocks serving on ListenAddr.
func (s *Server) Start() error {
	e := echo.New()
	e.Use(s.requestLogger)

	e.POST("/events", s.handleDeclareEvent)
	e.GET("/daos/:id", s.handleGetDAO)
	e.POST("/daos/:id/proposals", s.handleSubmitProposal)
	e.POST("/daos/:id/donate-and-vote", s.handleDonateAndVote)
	e.GET("/daos/:id/proposals", s.handleGetAllProposals)

	e.POST("/vault/fund", s.handleFundVault)
	e.POST("/vault/funders", s.handleAddFunder)
	e.GET("/vault/liquidity", s.handleGetLiquidity)

	e.POST("/identity/register", s.handleRegisterDID)
	e.POST("/identity/minters", s.handleAuthorizeMinter)
	e.GET("/identity/:owner/sbts", s.handleGetSBTs)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	e.GET("/ws/events", s.handleWebSocket)

	return e.Start(s.ListenAddr)
}

// requestLogger is structured access-log middleware in the idiom of the
// teacher's logrus-declared-but-unexercised dependency.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
			"status": c.Response().Status,
		}).Info("handled request")
		return err
	}
}

func (s *Server) broadcast(kind EventKind, data interface{}) {
	payload, err := json.Marshal(BroadcastEvent{Kind: kind, Data: data})
	if err != nil {
		return
	}
	s.eventBus.broadcast <- payload
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	s.eventBus.register <- conn
	defer func() {
		s.eventBus.unregister <- conn
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}

// errSignatureMismatch is returned when a request's X-Signature does not
// verify against its claimed X-Public-Key and its own body.
var errSignatureMismatch = errors.New("api: signature does not verify against caller and request body")

// verifiedCallerAndBody recovers the authenticated caller identity from the
// X-Public-Key header and verifies the accompanying X-Signature header
// against the raw request body, standing in for "the substrate supplies a
// verified caller" (SPEC_FULL.md §4.7). The caller is only trusted once the
// signature checks out against the exact bytes the handler will go on to
// unmarshal; callers of this helper must parse req from the returned body,
// never from c.Bind, so what was signed is what gets acted on.
func verifiedCallerAndBody(c echo.Context) (crypto.PublicKey, []byte, error) {
	caller, err := crypto.PublicKeyFromHex(c.Request().Header.Get("X-Public-Key"))
	if err != nil {
		return nil, nil, err
	}

	sig, err := crypto.SignatureFromHex(c.Request().Header.Get("X-Signature"))
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, nil, err
	}

	if !sig.Verify(caller, body) {
		return nil, nil, errSignatureMismatch
	}

	return caller, body, nil
}

type declareEventRequest struct {
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	DetailsJSON string `json:"details_json"`
}

func (s *Server) handleDeclareEvent(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req declareEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ev := event.ValidatedEvent{
		EventType:   req.EventType,
		Severity:    event.Severity(req.Severity),
		DetailsJSON: req.DetailsJSON,
	}

	daoID, err := s.runtime.DeclareEvent(caller, ev)
	if err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}

	s.broadcast(EventDeclared, map[string]string{"dao_id": daoID.String()})
	return c.JSON(http.StatusOK, map[string]string{"dao_id": daoID.String()})
}

func (s *Server) daoFromParam(c echo.Context) (types.Hash, bool) {
	b, err := types.HashFromHex(c.Param("id"))
	if err != nil {
		return types.Hash{}, false
	}
	_, ok := s.runtime.GetDAO(b)
	return b, ok
}

func (s *Server) handleGetDAO(c echo.Context) error {
	daoID, ok := s.daoFromParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "DAO not found"})
	}

	dao, _ := s.runtime.GetDAO(daoID)
	ev, _ := dao.GetEventDetails()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":               daoID.String(),
		"event_type":       ev.EventType,
		"severity":         ev.Severity,
		"treasury_balance": dao.GetTreasuryBalance(),
	})
}

type submitProposalRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	AmountRequested uint64 `json:"amount_requested"`
	Recipient       string `json:"recipient"`
}

func (s *Server) handleSubmitProposal(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	daoID, ok := s.daoFromParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "DAO not found"})
	}
	dao, _ := s.runtime.GetDAO(daoID)

	var req submitProposalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	recipient, err := crypto.PublicKeyFromHex(req.Recipient)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	msg := dao.SubmitProposal(caller, req.Title, req.Description, req.AmountRequested, recipient)
	s.metrics.ObserveProposals(daoID.String(), dao.GetTreasuryBalance(), 1, 0)
	return c.JSON(http.StatusOK, map[string]string{"status": msg})
}

type donateAndVoteRequest struct {
	Amount     uint64 `json:"amount"`
	ProposalID uint64 `json:"proposal_id"`
	InFavor    bool   `json:"in_favor"`
}

func (s *Server) handleDonateAndVote(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	daoID, ok := s.daoFromParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "DAO not found"})
	}

	var req donateAndVoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, ok := s.runtime.DonateAndVote(caller, daoID, req.Amount, req.ProposalID, req.InFavor)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "DAO not found"})
	}

	s.broadcast(EventVoteCast, map[string]interface{}{"dao_id": daoID.String(), "proposal_id": req.ProposalID, "result": result})

	dao, _ := s.runtime.GetDAO(daoID)
	s.metrics.ObserveProposals(daoID.String(), dao.GetTreasuryBalance(), 0, 0)

	return c.JSON(http.StatusOK, map[string]string{"status": result})
}

func (s *Server) handleGetAllProposals(c echo.Context) error {
	daoID, ok := s.daoFromParam(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "DAO not found"})
	}

	dao, _ := s.runtime.GetDAO(daoID)
	return c.JSON(http.StatusOK, dao.GetAllProposals())
}

func (s *Server) handleFundVault(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := s.runtime.Vault.FundVault(caller, req.Amount); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}

	s.metrics.VaultLiquidity.Set(float64(s.runtime.Vault.GetTotalLiquidity()))
	return c.JSON(http.StatusOK, map[string]uint64{"total_liquidity": s.runtime.Vault.GetTotalLiquidity()})
}

func (s *Server) handleAddFunder(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req struct {
		Funder string `json:"funder"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	funder, err := crypto.PublicKeyFromHex(req.Funder)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := s.runtime.Vault.AddFunder(caller, funder); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetLiquidity(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]uint64{"total_liquidity": s.runtime.Vault.GetTotalLiquidity()})
}

func (s *Server) handleRegisterDID(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req struct {
		Name        string `json:"name"`
		EntityType  string `json:"entity_type"`
		ContactInfo string `json:"contact_info"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	status := s.runtime.Ledger.RegisterDID(caller, req.Name, req.EntityType, req.ContactInfo)
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleAuthorizeMinter(c echo.Context) error {
	caller, body, err := verifiedCallerAndBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req struct {
		Minter string `json:"minter"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	minter, err := crypto.PublicKeyFromHex(req.Minter)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := s.runtime.Ledger.AuthorizeMinter(caller, minter); err != nil {
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSBTs(c echo.Context) error {
	owner, err := crypto.PublicKeyFromHex(c.Param("owner"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, s.runtime.Ledger.GetSBTs(owner))
}
