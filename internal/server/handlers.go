package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coinforge/internal/game"
	"coinforge/internal/spawn"
)

// CommandResponse pairs a command result with the state after it ran.
type CommandResponse struct {
	Result game.Result `json:"result"`
	State  game.State  `json:"state"`
}

type dropRequest struct {
	Level int  `json:"level"`
	Slot  *int `json:"slot"`
}

type sellRequest struct {
	Level    int  `json:"level"`
	Slot     int  `json:"slot"`
	Quantity int  `json:"quantity"`
	All      bool `json:"all"`
}

type workerRequest struct {
	Enabled bool `json:"enabled"`
}

type historyResponse struct {
	Level   int   `json:"level"`
	History []int `json:"history"`
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, fn func(g *game.Game) game.Result) {
	var resp CommandResponse
	err := s.loop.Submit(r.Context(), func(g *game.Game) {
		resp.Result = fn(g)
		resp.State = g.State()
	})
	if err != nil {
		writeError(w, loopStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(g *game.Game) any) {
	var body any
	if err := s.loop.Submit(r.Context(), func(g *game.Game) { body = fn(g) }); err != nil {
		writeError(w, loopStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func (s *Server) State(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(g *game.Game) any { return g.State() })
}

func (s *Server) Prices(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(g *game.Game) any { return g.Prices() })
}

func (s *Server) PriceHistory(w http.ResponseWriter, r *http.Request) {
	level, err := intParam(r, "level")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.query(w, r, func(g *game.Game) any {
		history := g.ChartHistory(level)
		if history == nil {
			history = []int{}
		}
		return historyResponse{Level: level, History: history}
	})
}

func (s *Server) Probabilities(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(g *game.Game) any {
		dist := g.Probabilities()
		if dist == nil {
			dist = []spawn.Weight{}
		}
		return dist
	})
}

func (s *Server) Deal(w http.ResponseWriter, r *http.Request) {
	now := s.loop.Now()
	s.command(w, r, func(g *game.Game) game.Result { return g.Deal(now) })
}

func (s *Server) PickUp(w http.ResponseWriter, r *http.Request) {
	slot, err := intParam(r, "slot")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.command(w, r, func(g *game.Game) game.Result { return g.PickUp(slot) })
}

func (s *Server) Drop(w http.ResponseWriter, r *http.Request) {
	req, err := decode[dropRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	target := game.NoSlot
	if req.Slot != nil {
		target = *req.Slot
	}
	s.command(w, r, func(g *game.Game) game.Result { return g.PlaceDraggedCoin(req.Level, target) })
}

func (s *Server) CancelDrag(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(g *game.Game) game.Result { return g.CancelDrag() })
}

func (s *Server) Sell(w http.ResponseWriter, r *http.Request) {
	req, err := decode[sellRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	qty := req.Quantity
	if req.All {
		qty = game.SellAll
	}
	now := s.loop.Now()
	s.command(w, r, func(g *game.Game) game.Result { return g.Sell(req.Level, req.Slot, qty, now) })
}

func (s *Server) QuickSell(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(g *game.Game) game.Result { return g.QuickSell() })
}

func (s *Server) BuySlot(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(g *game.Game) game.Result { return g.BuySlot() })
}

func (s *Server) BuyCoin(w http.ResponseWriter, r *http.Request) {
	level, err := intParam(r, "level")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now := s.loop.Now()
	s.command(w, r, func(g *game.Game) game.Result { return g.BuyCoin(level, now) })
}

func (s *Server) BuyUpgrade(w http.ResponseWriter, r *http.Request) {
	kind := game.UpgradeKind(chi.URLParam(r, "kind"))
	s.command(w, r, func(g *game.Game) game.Result { return g.BuyUpgrade(kind) })
}

func (s *Server) SetWorker(w http.ResponseWriter, r *http.Request) {
	req, err := decode[workerRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	now := s.loop.Now()
	s.command(w, r, func(g *game.Game) game.Result { return g.SetWorkerEnabled(req.Enabled, now) })
}

func (s *Server) Prestige(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(g *game.Game) game.Result { return g.Prestige() })
}

func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, func(g *game.Game) game.Result { return g.Restart() })
}

func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	if err := s.loop.Save(r.Context()); err != nil {
		s.logger.Warn("save failed", zap.Error(err))
		writeError(w, loopStatus(err), fmt.Errorf("not saved: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, game.Result{OK: true})
}

func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	ok, err := s.loop.Load(r.Context())
	if err != nil {
		// unreadable snapshots count as no data
		s.logger.Warn("load failed", zap.Error(err))
		ok = false
	}
	if !ok {
		writeJSON(w, http.StatusOK, game.Result{Reason: game.ReasonNoData})
		return
	}
	s.State(w, r)
}
