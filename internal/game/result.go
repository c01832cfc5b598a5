package game

// Reason explains why a command was refused.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonCooldown          Reason = "cooldown"
	ReasonInvalid           Reason = "invalid"
	ReasonNoRoom            Reason = "no_room"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonMaxed             Reason = "maxed"
	ReasonNotOwned          Reason = "not_owned"
	ReasonNotAllowed        Reason = "not_allowed"
	ReasonHolding           Reason = "holding"
	ReasonNoData            Reason = "no_data"
)

// Result is returned by every command. A refused command changed nothing.
type Result struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
	Gained int    `json:"gained"`
	Spent  int    `json:"spent"`
	Earned int    `json:"earned"`
	Sold   int    `json:"sold"`
	Dealt  int    `json:"dealt"`
	Level  int    `json:"level,omitempty"`
}

func refused(reason Reason) Result {
	return Result{Reason: reason}
}

// UpgradeKind names a purchasable upgrade.
type UpgradeKind string

const (
	UpgradeWorker    UpgradeKind = "worker"
	UpgradeTimeThief UpgradeKind = "time_thief"
)

// SellAll sells every coin of the level.
const SellAll = -1

// NoSlot marks a drop outside of any slot.
const NoSlot = -1
