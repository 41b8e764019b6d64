package common

import "fmt"

func RedisKeyCronLease(job string) string {
	return fmt.Sprintf("cronlease:%s", job)
}
