package cache

import "fmt"

// GenerateKeyWithParams builds an "op:arg:arg" cache key. Dates should
// be formatted before being passed so keys stay readable in Redis.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
