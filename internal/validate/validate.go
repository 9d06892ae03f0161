// Package validate is the pure pre-trade gate: given a candidate order, its
// client and its instrument, it decides accept or a typed rejection reason.
// It performs no mutation and holds no state — see SPEC_FULL.md §1 core
// component list and spec.md §4.1.
package validate

import (
	"agora/internal/client"
	"agora/internal/common"
	"agora/internal/instrument"
)

// Result is the validator's verdict. Accepted is false iff Reason is set.
type Result struct {
	Accepted bool
	Reason   common.RejectionReason
}

func accept() Result { return Result{Accepted: true} }

func reject(reason common.RejectionReason) Result {
	return Result{Accepted: false, Reason: reason}
}

// Order checks order against cl using the instrument registry, applying the
// four rules of spec.md §4.1 in order and reporting the first failure.
func Order(order common.Order, cl *client.Client, instruments *instrument.Registry) Result {
	inst, ok := instruments.Get(order.InstrumentID)
	if !ok {
		return reject(common.InstrumentNotFound)
	}

	if !cl.AllowsCurrency(inst.Currency) {
		return reject(common.MismatchCurrency)
	}

	if order.Quantity <= 0 || order.Quantity%inst.LotSize != 0 {
		return reject(common.InvalidLotSize)
	}

	if order.Side == common.Sell && cl.PositionCheck {
		if cl.NetPosition(order.InstrumentID) < order.Quantity {
			return reject(common.PositionCheckFailed)
		}
	}

	return accept()
}
