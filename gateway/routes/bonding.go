package routes

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"emberchain/crypto"
	"emberchain/native/bonding"
	"emberchain/native/common"
)

// bondingRoutes adapts the bonding engine and registry to the REST surface.
// Callers identify themselves by bech32 address; request authentication is a
// deployment concern handled in front of the gateway.
type bondingRoutes struct {
	engine   *bonding.Engine
	registry *bonding.Registry
	oracle   *bonding.FeedOracle
}

func newBondingRoutes(engine *bonding.Engine, registry *bonding.Registry, oracle *bonding.FeedOracle) *bondingRoutes {
	return &bondingRoutes{engine: engine, registry: registry, oracle: oracle}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the module's error taxonomy onto HTTP statuses so UIs can
// tell which policy was violated.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bonding.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, bonding.ErrPositionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bonding.ErrNothingToClaim):
		status = http.StatusConflict
	case errors.Is(err, bonding.ErrNotWhitelisted),
		errors.Is(err, bonding.ErrCapacityExceeded),
		errors.Is(err, bonding.ErrExceedsMaxBond),
		errors.Is(err, bonding.ErrBondTooSmall),
		errors.Is(err, bonding.ErrSlippageExceeded),
		errors.Is(err, bonding.ErrTooManyPositions):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, bonding.ErrInvalidPrice),
		errors.Is(err, bonding.ErrStalePrice),
		errors.Is(err, bonding.ErrNoPriceFeed),
		errors.Is(err, bonding.ErrNoQuote),
		errors.Is(err, bonding.ErrEmptyPool):
		status = http.StatusServiceUnavailable
	case errors.Is(err, common.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func parseAddress(field string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(field))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func parseWei(field string) (*big.Int, bool) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return nil, false
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, false
	}
	return value, true
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

// --- bond / quote ---

type bondRequest struct {
	Caller       string `json:"caller"`
	Asset        string `json:"asset"`
	Amount       string `json:"amount"`
	MinNativeOut string `json:"minNativeOut"`
}

type bondResponse struct {
	NativeOut string `json:"nativeOut"`
}

func (br *bondingRoutes) bond(w http.ResponseWriter, r *http.Request) {
	var req bondRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	amount, ok := parseWei(req.Amount)
	if !ok {
		writeBadRequest(w, "invalid amount")
		return
	}
	minOut := big.NewInt(0)
	if strings.TrimSpace(req.MinNativeOut) != "" {
		minOut, ok = parseWei(req.MinNativeOut)
		if !ok {
			writeBadRequest(w, "invalid minNativeOut")
			return
		}
	}
	native, err := br.engine.Bond(caller, req.Asset, amount, minOut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bondResponse{NativeOut: weiString(native)})
}

type quoteResponse struct {
	NativeOut   string `json:"nativeOut"`
	DiscountBps uint64 `json:"discountBps"`
	ValueBase   string `json:"valueBase"`
}

func (br *bondingRoutes) quote(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	amount, ok := parseWei(r.URL.Query().Get("amount"))
	if !ok {
		writeBadRequest(w, "invalid amount")
		return
	}
	quote, err := br.engine.Quote(asset, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		NativeOut:   weiString(quote.NativeOut),
		DiscountBps: quote.DiscountBps,
		ValueBase:   weiString(quote.ValueBase),
	})
}

// --- claims ---

type claimRequest struct {
	Caller      string   `json:"caller"`
	PositionID  uint64   `json:"positionId"`
	PositionIDs []uint64 `json:"positionIds"`
	Start       uint64   `json:"start"`
	Count       uint64   `json:"count"`
}

type claimResponse struct {
	Claimed string `json:"claimed"`
}

func (br *bondingRoutes) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	claimed, err := br.engine.Claim(caller, req.PositionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Claimed: weiString(claimed)})
}

func (br *bondingRoutes) claimBatch(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	claimed, err := br.engine.ClaimBatch(caller, req.PositionIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Claimed: weiString(claimed)})
}

func (br *bondingRoutes) claimAll(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	claimed, err := br.engine.ClaimAll(caller, req.Start, req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Claimed: weiString(claimed)})
}

// --- account views ---

type positionView struct {
	ID               uint64 `json:"id"`
	CollateralAsset  string `json:"collateralAsset"`
	CollateralAmount string `json:"collateralAmount"`
	AmountOwed       string `json:"amountOwed"`
	AmountClaimed    string `json:"amountClaimed"`
	VestingStart     int64  `json:"vestingStart"`
	VestingEnd       int64  `json:"vestingEnd"`
	PriceAtPurchase  string `json:"priceAtPurchase"`
	Closed           bool   `json:"closed"`
}

func (br *bondingRoutes) positions(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid address")
		return
	}
	positions, err := br.engine.Positions(owner)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, positionView{
			ID:               p.ID,
			CollateralAsset:  p.CollateralAsset,
			CollateralAmount: weiString(p.CollateralAmount),
			AmountOwed:       weiString(p.AmountOwed),
			AmountClaimed:    weiString(p.AmountClaimed),
			VestingStart:     p.VestingStart,
			VestingEnd:       p.VestingEnd,
			PriceAtPurchase:  weiString(p.PriceAtPurchase),
			Closed:           p.Closed,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (br *bondingRoutes) claimable(w http.ResponseWriter, r *http.Request) {
	owner, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid address")
		return
	}
	claimable, err := br.engine.ClaimableOf(owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Claimed: weiString(claimable)})
}

// --- registry views ---

type collateralView struct {
	Asset              string `json:"asset"`
	Whitelisted        bool   `json:"whitelisted"`
	Tier               uint8  `json:"tier"`
	BonusBps           uint64 `json:"bonusBps"`
	MaxCapacity        string `json:"maxCapacity,omitempty"`
	TotalBonded        string `json:"totalBonded"`
	PriceFeed          string `json:"priceFeed,omitempty"`
	BasePegged         bool   `json:"basePegged"`
	PooledLiquidity    bool   `json:"pooledLiquidity"`
	RequiresConversion bool   `json:"requiresConversion"`
	ConversionTarget   string `json:"conversionTarget,omitempty"`
	DiscountBps        uint64 `json:"discountBps"`
}

func (br *bondingRoutes) listCollateral(w http.ResponseWriter, r *http.Request) {
	assets, err := br.registry.Assets()
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]collateralView, 0, len(assets))
	for _, asset := range assets {
		entry, ok, err := br.registry.Entry(asset)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			continue
		}
		discount, err := br.registry.Discount(asset)
		if err != nil {
			writeError(w, err)
			return
		}
		view := collateralView{
			Asset:              entry.Asset,
			Whitelisted:        entry.Whitelisted,
			Tier:               uint8(entry.Tier),
			BonusBps:           entry.BonusBps,
			TotalBonded:        weiString(entry.TotalBonded),
			PriceFeed:          entry.PriceFeed,
			BasePegged:         entry.BasePegged,
			PooledLiquidity:    entry.PooledLiquidity,
			RequiresConversion: entry.RequiresConversion,
			ConversionTarget:   entry.ConversionTarget,
			DiscountBps:        discount,
		}
		if entry.MaxCapacity != nil {
			view.MaxCapacity = entry.MaxCapacity.String()
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

type totalsView struct {
	TotalOwed    string `json:"totalOwed"`
	TotalClaimed string `json:"totalClaimed"`
}

func (br *bondingRoutes) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := br.engine.Totals()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsView{
		TotalOwed:    weiString(totals.TotalOwed),
		TotalClaimed: weiString(totals.TotalClaimed),
	})
}

func (br *bondingRoutes) epoch(w http.ResponseWriter, r *http.Request) {
	epoch, err := br.engine.Epoch()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, epoch)
}

// --- admin ---

type whitelistRequest struct {
	Caller             string `json:"caller"`
	Asset              string `json:"asset"`
	Tier               uint8  `json:"tier"`
	BonusBps           uint64 `json:"bonusBps"`
	MaxCapacity        string `json:"maxCapacity"`
	PriceFeed          string `json:"priceFeed"`
	BasePegged         bool   `json:"basePegged"`
	PooledLiquidity    bool   `json:"pooledLiquidity"`
	RequiresConversion bool   `json:"requiresConversion"`
	ConversionTarget   string `json:"conversionTarget"`
}

func (br *bondingRoutes) whitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	entry := &bonding.CollateralEntry{
		Asset:              req.Asset,
		Tier:               bonding.RiskTier(req.Tier),
		BonusBps:           req.BonusBps,
		PriceFeed:          req.PriceFeed,
		BasePegged:         req.BasePegged,
		PooledLiquidity:    req.PooledLiquidity,
		RequiresConversion: req.RequiresConversion,
		ConversionTarget:   req.ConversionTarget,
	}
	if strings.TrimSpace(req.MaxCapacity) != "" {
		capacity, ok := parseWei(req.MaxCapacity)
		if !ok {
			writeBadRequest(w, "invalid maxCapacity")
			return
		}
		entry.MaxCapacity = capacity
	}
	if err := br.registry.Whitelist(caller, entry); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assetRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Value  string `json:"value"`
	Bps    uint64 `json:"bps"`
	Tier   uint8  `json:"tier"`
	Target string `json:"target"`
}

func (br *bondingRoutes) removeCollateral(w http.ResponseWriter, r *http.Request) {
	br.adminAssetOp(w, r, func(caller [20]byte, req assetRequest) error {
		return br.registry.Remove(caller, req.Asset)
	})
}

func (br *bondingRoutes) setCapacity(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	var capacity *big.Int
	if strings.TrimSpace(req.Value) != "" {
		parsed, ok := parseWei(req.Value)
		if !ok {
			writeBadRequest(w, "invalid capacity value")
			return
		}
		capacity = parsed
	}
	if err := br.registry.SetCapacity(caller, req.Asset, capacity); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (br *bondingRoutes) setBonus(w http.ResponseWriter, r *http.Request) {
	br.adminAssetOp(w, r, func(caller [20]byte, req assetRequest) error {
		return br.registry.SetBonus(caller, req.Asset, req.Bps)
	})
}

func (br *bondingRoutes) setConversion(w http.ResponseWriter, r *http.Request) {
	br.adminAssetOp(w, r, func(caller [20]byte, req assetRequest) error {
		return br.registry.SetConversionTarget(caller, req.Asset, req.Target)
	})
}

func (br *bondingRoutes) setTierDiscount(w http.ResponseWriter, r *http.Request) {
	br.adminAssetOp(w, r, func(caller [20]byte, req assetRequest) error {
		return br.registry.SetTierDiscount(caller, bonding.RiskTier(req.Tier), req.Bps)
	})
}

func (br *bondingRoutes) adminAssetOp(w http.ResponseWriter, r *http.Request, op func([20]byte, assetRequest) error) {
	var req assetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, "invalid caller address")
		return
	}
	if err := op(caller, req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type priceRequest struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Decimals uint8  `json:"decimals"`
}

func (br *bondingRoutes) setPrice(w http.ResponseWriter, r *http.Request) {
	if br.oracle == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "price feed not managed by this gateway"})
		return
	}
	var req priceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseWei(req.Price)
	if !ok {
		writeBadRequest(w, "invalid price")
		return
	}
	if err := br.oracle.SetPrice(req.Symbol, price, req.Decimals); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
