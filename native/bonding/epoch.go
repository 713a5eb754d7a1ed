package bonding

import "emberchain/core/events"

// advanceEpochIfNeeded rolls the rate-limit window forward when the configured
// duration has elapsed. The operation is idempotent: repeated calls within one
// window observe the same epoch, and the rollover itself only bumps the epoch
// identifier and start time. Counters recorded under the previous identifier
// simply stop being referenced.
func (e *Engine) advanceEpochIfNeeded(now int64) (*EpochState, error) {
	state, ok, err := e.state.BondingEpochGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		state = &EpochState{EpochID: 1, EpochStart: now}
		if err := e.state.BondingEpochPut(state); err != nil {
			return nil, err
		}
		return state.Clone(), nil
	}
	if e.params.EpochSeconds == 0 {
		return state.Clone(), nil
	}
	if now >= state.EpochStart+int64(e.params.EpochSeconds) {
		state.EpochID++
		state.EpochStart = now
		if err := e.state.BondingEpochPut(state); err != nil {
			return nil, err
		}
		e.emit(events.BondingEpochAdvanced{EpochID: state.EpochID, EpochStart: state.EpochStart})
	}
	return state.Clone(), nil
}

// Epoch returns the current rate-limit epoch without advancing it.
func (e *Engine) Epoch() (*EpochState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	state, ok, err := e.state.BondingEpochGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &EpochState{}, nil
	}
	return state.Clone(), nil
}
