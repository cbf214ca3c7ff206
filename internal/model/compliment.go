package model

import "time"

// Compliment は同僚への褒め言葉を表す。作成後は変更されない。
type Compliment struct {
	ID          string
	FromUserID  string
	ToUserID    string
	Message     string
	IsAnonymous bool
	IsModerated bool
	CreatedAt   time.Time
}

// UserSummary は一覧表示用のユーザー概要。
type UserSummary struct {
	ID           string
	FullName     string
	Position     string
	AvatarURL    *string
	Organization *Organization
}

// FeedItem はフィードに表示する褒め言葉。
// 匿名の場合FromUserは必ずnilになる。
type FeedItem struct {
	ID          string
	Message     string
	IsAnonymous bool
	CreatedAt   time.Time
	FromUser    *UserSummary
	ToUser      *UserSummary
}

// ReceivedCompliment は受信者単位の集計ビューの1行を表す。
// 匿名の場合FromUserはnil。
type ReceivedCompliment struct {
	ID          string
	Message     string
	IsAnonymous bool
	CreatedAt   time.Time
	FromUser    *UserSummary
}

// ReceivedSummary は受信した褒め言葉の件数と直近の一覧。
type ReceivedSummary struct {
	Count  int
	Recent []ReceivedCompliment
}

// LeaderboardEntry はリーダーボードの1行を表す。
type LeaderboardEntry struct {
	User              UserSummary
	ComplimentCount   int
	RecentCompliments []ReceivedCompliment
}

// TimeFrame はリーダーボードの集計期間。
type TimeFrame string

const (
	TimeFrameWeek  TimeFrame = "week"
	TimeFrameMonth TimeFrame = "month"
	TimeFrameAll   TimeFrame = "all"
)

// Since は集計期間の開始時刻を返す。全期間の場合はnilを返す。
// monthは30日ではなく暦の1ヶ月前とする。
func (tf TimeFrame) Since(now time.Time) *time.Time {
	var since time.Time
	switch tf {
	case TimeFrameWeek:
		since = now.Add(-7 * 24 * time.Hour)
	case TimeFrameMonth:
		since = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &since
}

// ParseTimeFrame は文字列をTimeFrameに変換する。空文字はmonthとして扱う。
func ParseTimeFrame(s string) (TimeFrame, bool) {
	switch TimeFrame(s) {
	case "":
		return TimeFrameMonth, true
	case TimeFrameWeek, TimeFrameMonth, TimeFrameAll:
		return TimeFrame(s), true
	default:
		return "", false
	}
}

// OrgFilterAll は組織で絞り込まないことを表すフィルタ値。
const OrgFilterAll = "all"
