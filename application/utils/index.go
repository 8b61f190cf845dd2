package utils

import (
	"encoding/base64"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DecodeBase64Image decodes a base64 image payload, tolerating an optional
// data URI prefix such as "data:image/jpeg;base64,".
func DecodeBase64Image(payload string) ([]byte, error) {
	if index := strings.Index(payload, ","); index != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[index+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(payload)
	}
	return decoded, nil
}

func GenerateULIDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetStringPointer(text string) *string {
	return &text
}

func GetBooleanPointer(data bool) *bool {
	return &data
}

func GetFloat64Pointer(data float64) *float64 {
	return &data
}

func GetInt64Pointer(data int64) *int64 {
	return &data
}

func PickRandomStrings(pool []string, count int) []string {
	if count >= len(pool) {
		count = len(pool)
	}
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i int, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}

func HasItemString(arr *[]string, target string) bool {
	for _, v := range *arr {
		if v == target {
			return true
		}
	}
	return false
}
