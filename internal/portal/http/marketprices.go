package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/shopspring/decimal"
)

// HandleListMarketPrices handles GET /api/admin/market-prices
//
//	@Summary		List admin-entered market prices
//	@Description	Deactivated prices are left out unless all=true.
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"
//	@Param			market		query		string	false	"Market substring"
//	@Param			search		query		string	false	"Commodity substring"
//	@Param			limit		query		int		false	"Default 100, max 500"
//	@Param			all			query		bool	false	"Include deactivated prices"
//	@Success		200			{object}	portalsdk.MarketPriceListResponse
//	@Failure		400			{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/admin/market-prices [get].
func (h *ContentHandler) HandleListMarketPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MarketPriceFilter{
		Market: strings.TrimSpace(q.Get("market")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  httpx.QueryInt(r, "limit", 0),
	}
	if c := strings.TrimSpace(q.Get("category")); c != "" {
		if reason := portalsdk.CheckOneOf(c, portalsdk.PriceCategories); reason != "" {
			writeValidation(w, map[string]string{"category": reason})
			return
		}
		filter.Category = domain.PriceCategory(c)
	}
	all, _ := strconv.ParseBool(q.Get("all"))
	filter.ActiveOnly = !all

	prices, err := h.MarketPrices.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MarketPriceListResponse{
		Count:  len(prices),
		Prices: marketPriceViews(prices),
	})
}

// HandleCreateMarketPrice handles POST /api/admin/market-prices
//
//	@Summary		Add a market price
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.MarketPriceRequest	true	"Price"
//	@Success		201		{object}	portalsdk.MarketPriceResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/admin/market-prices [post].
func (h *ContentHandler) HandleCreateMarketPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.MarketPriceRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	p, err := h.MarketPrices.Create(ctx, marketPriceFromRequest(req), a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, portalsdk.MarketPriceResponse{Price: marketPriceView(p)})
}

// HandleGetMarketPrice handles GET /api/admin/market-prices/{id}
//
//	@Summary		Get a market price
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Price ID"
//	@Success		200	{object}	portalsdk.MarketPriceResponse
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/market-prices/{id} [get].
func (h *ContentHandler) HandleGetMarketPrice(w http.ResponseWriter, r *http.Request) {
	p, err := h.MarketPrices.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MarketPriceResponse{Price: marketPriceView(p)})
}

// HandleUpdateMarketPrice handles PUT /api/admin/market-prices/{id}
//
//	@Summary		Replace a market price
//	@Description	An omitted isActive keeps the current flag, so true reactivates a deleted price.
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Price ID"
//	@Param			request	body		portalsdk.MarketPriceRequest	true	"Price"
//	@Success		200		{object}	portalsdk.MarketPriceResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		404		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/market-prices/{id} [put].
func (h *ContentHandler) HandleUpdateMarketPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.MarketPriceRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	p, err := h.MarketPrices.Update(ctx, r.PathValue("id"), marketPriceFromRequest(req), req.IsActive, a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MarketPriceResponse{Price: marketPriceView(p)})
}

// HandleDeleteMarketPrice handles DELETE /api/admin/market-prices/{id}
//
//	@Summary		Deactivate a market price
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Price ID"
//	@Success		204
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/market-prices/{id} [delete].
func (h *ContentHandler) HandleDeleteMarketPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	if err := h.MarketPrices.Delete(ctx, r.PathValue("id"), a.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarketStats handles GET /api/admin/market-stats
//
//	@Summary		Summarise admin-entered market prices
//	@Tags			Market Prices
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.MarketStatsResponse
//	@Router			/api/admin/market-stats [get].
func (h *ContentHandler) HandleMarketStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.MarketPrices.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MarketStatsResponse{
		TotalPrices:       s.Total,
		ActivePrices:      s.Active,
		UniqueCommodities: s.UniqueCommodities,
		RecentUpdates:     s.RecentUpdates,
		LastUpdated:       s.LastUpdated,
		Prices:            marketPriceViews(s.Recent),
	})
}

func marketPriceFromRequest(req portalsdk.MarketPriceRequest) domain.MarketPrice {
	p := domain.MarketPrice{
		Commodity: req.Commodity,
		Market:    req.Market,
		District:  req.District,
		State:     req.State,
		Category:  domain.PriceCategory(req.Category),
		Unit:      domain.PriceUnit(req.Unit),
		Price:     decimal.NewFromFloat(req.Price),
	}
	if req.MinPrice != nil {
		p.MinPrice = decimal.NewFromFloat(*req.MinPrice)
	}
	if req.MaxPrice != nil {
		p.MaxPrice = decimal.NewFromFloat(*req.MaxPrice)
	}
	if req.PriceDate != nil {
		p.PriceDate = req.PriceDate.UTC()
	}
	return p
}
