package worker

import (
	"fmt"
	"time"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/domain"
)

type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionAnnounce
	ActionWithdraw
)

func (k ActionKind) String() string {
	switch k {
	case ActionAnnounce:
		return "announce"
	case ActionWithdraw:
		return "withdraw"
	}
	return "none"
}

const (
	ReasonRisen    = "service has risen"
	ReasonDisabled = "service disabled"
	ReasonFailed   = "service failed"
)

// Action is the route change a transition asks for.
type Action struct {
	Kind   ActionKind
	Reason string
}

// Transition applies one probe result to prev and returns the next state and
// the route change it requires. It does not touch prev.
//
// The counters in prev hold the consecutive results seen so far, so a rise
// or fall of 0 or 1 flips on the first qualifying result.
func Transition(c config.Check, prev domain.CheckState, res domain.ProbeResult, now time.Time) (domain.CheckState, Action) {
	last := res

	if res.Disabled {
		next := domain.CheckState{State: domain.StateDisabled, LastResult: &last, DownSince: prev.DownSince}
		if prev.Advertised {
			next.DownSince = &now
			return next, Action{Kind: ActionWithdraw, Reason: ReasonDisabled}
		}
		return next, Action{}
	}

	if res.Success {
		switch {
		case prev.Advertised:
			return domain.CheckState{State: domain.StateUp, Advertised: true, LastResult: &last, UpSince: prev.UpSince}, Action{}
		case prev.Rise+1 >= c.Rise:
			return domain.CheckState{State: domain.StateUp, Advertised: true, LastResult: &last, UpSince: &now},
				Action{Kind: ActionAnnounce, Reason: ReasonRisen}
		default:
			return domain.CheckState{State: domain.StateRising, LastResult: &last, DownSince: prev.DownSince, Rise: prev.Rise + 1}, Action{}
		}
	}

	switch {
	case !prev.Advertised:
		// keep the first recorded moment the service went down
		since := prev.DownSince
		if since == nil {
			since = prev.UpSince
		}
		if since == nil {
			since = &now
		}
		return domain.CheckState{State: domain.StateDown, LastResult: &last, DownSince: since}, Action{}
	case prev.Fall+1 >= c.Fall:
		return domain.CheckState{State: domain.StateDown, LastResult: &last, DownSince: &now},
			Action{Kind: ActionWithdraw, Reason: ReasonFailed}
	default:
		return domain.CheckState{State: domain.StateFalling, Advertised: true, LastResult: &last, UpSince: prev.UpSince, Fall: prev.Fall + 1}, Action{}
	}
}

// Detail renders the state for humans, e.g. "rising (1/3)".
func Detail(c config.Check, s domain.CheckState) string {
	switch s.State {
	case domain.StateRising:
		return fmt.Sprintf("rising (%d/%d)", s.Rise, c.Rise)
	case domain.StateFalling:
		return fmt.Sprintf("falling (%d/%d)", s.Fall, c.Fall)
	}
	return string(s.State)
}
