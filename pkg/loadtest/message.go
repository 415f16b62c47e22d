package loadtest

import (
	"math/rand"
	"strconv"
)

const (
	payloadChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" // 62 characters

	recipientPrefix    = "+1"
	minRecipientNumber = 1000000000
	maxRecipientNumber = 9999999999

	minPayloadLength = 1
	maxPayloadLength = 100
)

// Message is a single synthetic message awaiting dispatch. Duplicates are
// permitted: a message has no identity beyond its content.
type Message struct {
	Recipient string // A US phone number-like string: "+1" followed by 10 digits.
	Payload   string // Between 1 and 100 alphanumeric characters.
}

// NewRandomMessage generates a message with a random recipient and payload
// using the given source of randomness.
func NewRandomMessage(r *rand.Rand) Message {
	return Message{
		Recipient: randomRecipient(r),
		Payload:   randomPayload(r),
	}
}

func randomRecipient(r *rand.Rand) string {
	n := minRecipientNumber + r.Int63n(maxRecipientNumber-minRecipientNumber+1)
	return recipientPrefix + strconv.FormatInt(n, 10)
}

func randomPayload(r *rand.Rand) string {
	length := minPayloadLength + r.Intn(maxPayloadLength-minPayloadLength+1)
	chars := make([]byte, length)
	for i := range chars {
		chars[i] = payloadChars[r.Intn(len(payloadChars))]
	}
	return string(chars)
}
