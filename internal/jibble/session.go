package jibble

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/hitoshi/dakoku/internal/model"
)

const (
	// defaultLookback は進行中エントリを探索する期間。
	// 日付をまたぐ打刻を取りこぼさないよう2日分を見る。
	defaultLookback = 48 * time.Hour
)

// TimeEntryLister は打刻エントリ一覧取得のインターフェース。Clientが実装する。
type TimeEntryLister interface {
	ListTimeEntries(ctx context.Context, personID string, from, to time.Time) ([]model.TimeEntry, error)
}

// SessionResolver は人物の現在の打刻セッション状態を解決する。
// Jibble側の返却順は保証されないため、開始時刻の降順でソートしてから
// 判定する（最初に見つかった進行中エントリ＝最新の進行中エントリ）。
type SessionResolver struct {
	lister   TimeEntryLister
	lookback time.Duration
	now      func() time.Time // テスト用に差し替え可能
}

// NewSessionResolver はSessionResolverを生成する。
func NewSessionResolver(lister TimeEntryLister) *SessionResolver {
	return &SessionResolver{
		lister:   lister,
		lookback: defaultLookback,
		now:      time.Now,
	}
}

// FindOpenEntry は指定人物の進行中エントリ（終了時刻のないエントリ）を返す。
// 見つからない場合はnilを返す。一覧取得に失敗した場合はエラーを返す。
// 進行中エントリは高々1件というJibble側の不変条件を信頼するが、
// 複数存在する場合は開始時刻が最新のものを返す。
func (r *SessionResolver) FindOpenEntry(ctx context.Context, personID string) (*model.TimeEntry, error) {
	to := r.now()
	entries, err := r.lister.ListTimeEntries(ctx, personID, to.Add(-r.lookback), to)
	if err != nil {
		return nil, err
	}

	sortByStartDesc(entries)

	for i := range entries {
		if entries[i].IsOpen() {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// SessionStatus は人物の現在のセッション状態を表す。
type SessionStatus struct {
	ClockedIn bool
	// Start は進行中エントリの開始時刻（ClockedIn時のみ有効）。
	Start time.Time
	// Hours は進行中エントリの経過時間（時間単位、小数2桁）。
	Hours float64
	// LastEnd は直近の完了エントリの終了時刻。完了エントリがない場合はnil。
	LastEnd *time.Time
}

// Status は指定人物の現在のセッション状態を返す。
// 進行中エントリがあればclocked_in（開始時刻と経過時間付き）、
// なければclocked_out（直近完了エントリの終了時刻付き）を返す。
func (r *SessionResolver) Status(ctx context.Context, personID string) (*SessionStatus, error) {
	to := r.now()
	entries, err := r.lister.ListTimeEntries(ctx, personID, to.Add(-r.lookback), to)
	if err != nil {
		return nil, err
	}

	sortByStartDesc(entries)

	var lastEnd *time.Time
	for i := range entries {
		e := &entries[i]
		if e.IsOpen() {
			return &SessionStatus{
				ClockedIn: true,
				Start:     e.Start,
				Hours:     RoundHours(to.Sub(e.Start)),
			}, nil
		}
		// 降順ソート済みのため、最初に出現する完了エントリが直近の完了エントリ
		if lastEnd == nil {
			lastEnd = e.End
		}
	}

	return &SessionStatus{ClockedIn: false, LastEnd: lastEnd}, nil
}

// RoundHours は経過時間を時間単位の小数2桁に丸める。
// レスポンス表示用であり、正式な勤務時間はJibble側が管理する。
func RoundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// sortByStartDesc はエントリを開始時刻の降順でソートする。
func sortByStartDesc(entries []model.TimeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Start.After(entries[j].Start)
	})
}
