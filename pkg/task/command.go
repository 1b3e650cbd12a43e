package task

// Kind is a decoded command kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindStop
	KindStartLocalizing
	KindStopLocalizing
	KindStartMapping
	KindStopMapping
	KindReauthenticate
	KindArmMove
	KindOpenHand
	KindCloseHand
	KindRecognize
	KindMove
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindStop:            "stop",
	KindStartLocalizing: "start_localizing",
	KindStopLocalizing:  "stop_localizing",
	KindStartMapping:    "start_mapping",
	KindStopMapping:     "stop_mapping",
	KindReauthenticate:  "reauthenticate",
	KindArmMove:         "arm_move",
	KindOpenHand:        "open_hand",
	KindCloseHand:       "close_hand",
	KindRecognize:       "recognize",
	KindMove:            "move",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Subsystem command codes published on the command topic.
const (
	CodeStop            = 0
	CodeStartLocalizing = 1
	CodeStopLocalizing  = 2
	CodeStartMapping    = 3
	CodeStopMapping     = 4
	CodeAuthenticate    = 5
	CodeArmMove         = 6
	CodeOpenHand        = 7
	CodeCloseHand       = 8
)

// Command is a decoded command code.
type Command struct {
	Kind Kind
	Code int

	// Silent suppresses the spoken acknowledgement.
	Silent bool
}

var codeKinds = map[int]Kind{
	0:   KindStop,
	1:   KindStartLocalizing,
	2:   KindStopLocalizing,
	21:  KindStopLocalizing,
	3:   KindStartMapping,
	4:   KindStopMapping,
	5:   KindReauthenticate,
	51:  KindReauthenticate,
	6:   KindArmMove,
	61:  KindArmMove,
	7:   KindOpenHand,
	8:   KindCloseHand,
	9:   KindRecognize,
	91:  KindRecognize,
	92:  KindRecognize,
	93:  KindRecognize,
	94:  KindRecognize,
	95:  KindRecognize,
	300: KindMove,
	400: KindMove,
	500: KindMove,
	501: KindMove,
	600: KindMove,
	601: KindMove,
}

// Decode maps a code to its command kind. Alias codes decode to the same
// kind as their base code.
func Decode(code int) Command {
	return Command{
		Kind:   codeKinds[code],
		Code:   code,
		Silent: code == 61,
	}
}
