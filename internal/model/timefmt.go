package model

import (
	"fmt"
	"time"
)

// TimeAgo は投稿からの経過時間を表示用の文字列にする。
//   - 60秒未満: "just now"
//   - 1時間未満: "{m}m ago"
//   - 24時間未満: "{h}h ago"
//   - それ以上: "{d}d ago"
func TimeAgo(createdAt, now time.Time) string {
	diff := now.Sub(createdAt)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
}
