package effect

// Prompts is the catalog of fixed phrases the robot speaks, each paired
// with the canned clip that replaces it in manual mode.
type Prompts struct {
	// AckPrefix precedes the matched phrase when acknowledging a command.
	AckPrefix string

	Greeting    string
	Warning     string
	Found       string
	NotFound    string
	PleaseWait  string
	PleaseRetry string
}

// Clip ids for the fixed prompts.
const (
	ClipUnlocked = "unlocked"
	ClipLocked   = "locked"
	ClipFound    = "found"
	ClipNotFound = "notfound"
)

// DefaultPrompts returns the Mandarin prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		AckPrefix:   "执行命令 ",
		Greeting:    "认证通过！欢迎使用ROS机器人",
		Warning:     "认证失败！系统被锁定",
		Found:       "已找到",
		NotFound:    "未找到",
		PleaseWait:  "请稍等",
		PleaseRetry: "请再说一遍",
	}
}

// Ack acknowledges an accepted command.
func (p Prompts) Ack(code int, phrase string) Effect {
	return Say(p.AckPrefix+phrase, CodeClip(code))
}

// GreetingEffect is spoken once per entry into the unlocked state.
func (p Prompts) GreetingEffect() Effect {
	return Say(p.Greeting, ClipUnlocked)
}

// WarningEffect is spoken once per entry into the locked state.
func (p Prompts) WarningEffect() Effect {
	return Say(p.Warning, ClipLocked)
}

// FoundEffect reports a successful detection.
func (p Prompts) FoundEffect() Effect {
	return Say(p.Found, ClipFound)
}

// NotFoundEffect reports a failed detection.
func (p Prompts) NotFoundEffect() Effect {
	return Say(p.NotFound, ClipNotFound)
}

// WaitEffect precedes forwarding free-form text. It has no clip.
func (p Prompts) WaitEffect() Effect {
	return Say(p.PleaseWait, "")
}

// RetryEffect asks the speaker to repeat. It has no clip.
func (p Prompts) RetryEffect() Effect {
	return Say(p.PleaseRetry, "")
}
