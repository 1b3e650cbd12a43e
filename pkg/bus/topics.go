package bus

import "strings"

// Topic names used by the robot. Inbound topics are written by other
// processes; outbound topics are written by the supervisor.

// TopicFaceAuth carries face-recognition results (Int32, 1 = pass).
const TopicFaceAuth = "/face/auth"

// TopicManualControl carries operator command codes (Int32).
const TopicManualControl = "/voice/control"

// TopicPlaying reports whether the speech player is busy (Int32, 1 = playing).
const TopicPlaying = "/voice/xf_tts_playing"

// TopicTaskResult carries subsystem completion and fault reports (Int32).
const TopicTaskResult = "/voice/result_topic"

// TopicCommand carries subsystem command codes (Int32).
const TopicCommand = "/voice/cmd_topic"

// TopicVelocity carries base velocity commands (Twist).
const TopicVelocity = "/mobile_base/commands/velocity"

// TopicLED carries the base indicator LED color (Int32).
const TopicLED = "/mobile_base/commands/led1"

// TopicSound carries the base built-in sound id (Int32).
const TopicSound = "/mobile_base/commands/sound"

// TopicArmTarget carries arm target coordinates (Float32Array, xyz).
const TopicArmTarget = "/voice/manipulate_topic"

// TopicConverse carries free-form text for the conversational responder (String).
const TopicConverse = "/voice/tuling_nlu_topic"

// Topics builds fully-qualified topic names under an optional prefix.
type Topics struct {
	prefix string
}

// NewTopics creates a Topics helper. An empty prefix keeps the bare names.
func NewTopics(prefix string) *Topics {
	return &Topics{prefix: strings.TrimRight(prefix, "/")}
}

// Name qualifies a topic constant.
func (t *Topics) Name(topic string) string {
	if t == nil || t.prefix == "" {
		return topic
	}
	return t.prefix + topic
}

func (t *Topics) FaceAuth() string      { return t.Name(TopicFaceAuth) }
func (t *Topics) ManualControl() string { return t.Name(TopicManualControl) }
func (t *Topics) Playing() string       { return t.Name(TopicPlaying) }
func (t *Topics) TaskResult() string    { return t.Name(TopicTaskResult) }
func (t *Topics) Command() string       { return t.Name(TopicCommand) }
func (t *Topics) Velocity() string      { return t.Name(TopicVelocity) }
func (t *Topics) LED() string           { return t.Name(TopicLED) }
func (t *Topics) Sound() string         { return t.Name(TopicSound) }
func (t *Topics) ArmTarget() string     { return t.Name(TopicArmTarget) }
func (t *Topics) Converse() string      { return t.Name(TopicConverse) }
