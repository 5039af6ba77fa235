// File: tee/logf.go
// Author: momentics <momentics@gmail.com>

package tee

import "log"

func debugf(format string, v ...any) {
	if debugEnabled {
		log.Printf("[tee] "+format, v...)
	}
}
