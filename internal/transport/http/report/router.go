package reporthttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tradelens/internal/correlate"
	"tradelens/internal/report"
	"tradelens/internal/store"
)

// Router maps report queries onto the report service.
type Router struct {
	service *report.Service
	store   store.Store
}

// NewRouter wires the handlers. The store is optional; without it the
// raw trade listing endpoint is disabled.
func NewRouter(service *report.Service, st store.Store) *Router {
	return &Router{service: service, store: st}
}

// Register mounts the report routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/missed", r.handleMissed)
	group.GET("/trailing", r.handleTrailing)
	if r.store != nil {
		group.GET("/trades", r.handleTrades)
	}
}

func (r *Router) handleMissed(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := r.service.MissedTrades(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) handleTrailing(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rep, err := r.service.TrailingBenefit(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) handleTrades(c *gin.Context) {
	f := store.TradeFilter{Pair: strings.TrimSpace(c.Query("pair"))}
	var err error
	if f.Days, err = intQuery(c, "days", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Limit, err = intQuery(c, "limit", 100); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Offset, err = intQuery(c, "offset", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.BotID, err = optIntQuery(c, "bot_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.From, err = timeQuery(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.To, err = timeQuery(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := r.store.ListTrades(c.Request.Context(), f)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrInvalidFilter) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

func parseFilter(c *gin.Context) (correlate.Filter, error) {
	var (
		f   correlate.Filter
		err error
	)
	if f.BotID, err = optIntQuery(c, "bot_id"); err != nil {
		return f, err
	}
	if f.TradeID, err = optIntQuery(c, "trade_id"); err != nil {
		return f, err
	}
	f.PairContains = strings.TrimSpace(c.Query("pair"))
	f.Container = strings.TrimSpace(c.Query("container"))
	switch side := strings.ToLower(strings.TrimSpace(c.Query("side"))); side {
	case "":
	case "long", "short":
		f.Side = correlate.Side(side)
	default:
		return f, errors.New("side must be long or short")
	}
	switch source := strings.ToLower(strings.TrimSpace(c.Query("match_source"))); source {
	case "":
	case string(correlate.MatchNone), string(correlate.MatchClosedTrail),
		string(correlate.MatchTradeFallback), string(correlate.MatchRPCHint),
		string(correlate.MatchTradeOnly):
		f.MatchSource = correlate.MatchSource(source)
	default:
		return f, errors.New("unknown match_source")
	}
	return f, nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func optIntQuery(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &v, nil
}

func timeQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New(name + " must be RFC3339")
	}
	return &t, nil
}
