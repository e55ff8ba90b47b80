package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ServerListening    string
	ShuttingDown       string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	StateLoadFailed    string
	APIServerError     string
	CoreFatal          string

	// Ingestion pipeline
	PhaseTransition    string
	BufferingStarted   string
	CheckpointFirstRun string
	CheckpointResuming string
	CheckpointPending  string
	BackfillFetched    string
	RestoreSeeded      string
	ReplayStarted      string
	ReplayFinished     string
	CutoverDrained     string
	LiveMode           string
	Disconnected       string
	StaleBarDropped    string
	BufferOverflow     string
	StartupDeadline    string

	// Signals
	SignalEmitted       string
	SignalFiltered      string
	SignalClosed        string
	SignalSaveFailed    string
	SignalAnomaly       string
	ObserverPanic       string
	ActiveSignalsLoaded string

	// Streaks
	StreakUpdated    string
	StreakSaveFailed string
	StreaksLoaded    string

	// ATR tracker
	ATRWarmupDone string

	// Feeds
	BinanceFeedStarted string
	WsReadError        string
	WsParseError       string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting signal engine...",
	ConfigLoaded:       "Config loaded (Port: %s)",
	UsingDBPath:        "Using DB path: %s",
	ServerListening:    "Server listening on :%s",
	ShuttingDown:       "Shutting down gracefully...",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	StateLoadFailed:    "Failed to load state: %v",
	APIServerError:     "API server error: %v",
	CoreFatal:          "FATAL core invariant violated: %s",

	// Ingestion pipeline
	PhaseTransition:    "Pipeline phase: %s -> %s",
	BufferingStarted:   "WebSocket connections started (buffering mode)",
	CheckpointFirstRun: "First run for %s: checkpoint set to now-%dh",
	CheckpointResuming: "Resuming %s: last_processed=%d",
	CheckpointPending:  "Found pending checkpoint for %s, will re-replay",
	BackfillFetched:    "Backfilled %d bars for %s",
	RestoreSeeded:      "Restored %d bars into %s %s state",
	ReplayStarted:      "Replaying %s from checkpoint %d",
	ReplayFinished:     "Replayed %d bars for %s",
	CutoverDrained:     "Cutover phase %d drained %d buffered bars",
	LiveMode:           "Pipeline LIVE (%d buffered bars processed)",
	Disconnected:       "Upstream disconnected: %v, returning to INIT",
	StaleBarDropped:    "Stale bar dropped: %s @%d (stale total: %d)",
	BufferOverflow:     "Ingestion buffer full (%d), dropping bar %s @%d",
	StartupDeadline:    "Startup did not reach LIVE within %v",

	// Signals
	SignalEmitted:       "%s signal: %s %s @ %.4f TP=%.4f SL=%.4f ATR=%.4f streak=%d",
	SignalFiltered:      "Filter REJECT %s %s: %s",
	SignalClosed:        "Signal %s hit %s: close=%.4f mae=%.2f mfe=%.2f",
	SignalSaveFailed:    "Failed to save signal %s: %v (signal will NOT be tracked)",
	SignalAnomaly:       "Both LONG and SHORT conditions matched for %s %s; emitting neither",
	ObserverPanic:       "Observer callback panic: %v",
	ActiveSignalsLoaded: "Loaded %d active signals",

	// Streaks
	StreakUpdated:    "Streak %s: %d (wins=%d losses=%d)",
	StreakSaveFailed: "Failed to persist streak for %s: %v",
	StreaksLoaded:    "Loaded %d streak trackers",

	// ATR tracker
	ATRWarmupDone: "ATR warmup: %s %s loaded %d values",

	// Feeds
	BinanceFeedStarted: "Binance feed started",
	WsReadError:        "binance ws read error: %v",
	WsParseError:       "binance ws parse error: %v",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "啟動訊號引擎...",
	ConfigLoaded:       "設定已載入（埠號：%s）",
	UsingDBPath:        "使用資料庫路徑：%s",
	ServerListening:    "服務監聽於 :%s",
	ShuttingDown:       "正在優雅關閉...",
	ConfigLoadFailed:   "讀取設定失敗：%v",
	DBInitFailed:       "初始化資料庫失敗：%v",
	DBMigrationsFailed: "套用資料庫遷移失敗：%v",
	StateLoadFailed:    "載入狀態失敗：%v",
	APIServerError:     "API 伺服器錯誤：%v",
	CoreFatal:          "致命錯誤，核心不變式被違反：%s",

	// Ingestion pipeline
	PhaseTransition:    "管線階段：%s -> %s",
	BufferingStarted:   "WebSocket 連線已啟動（緩衝模式）",
	CheckpointFirstRun: "%s 首次啟動：檢查點設為 now-%dh",
	CheckpointResuming: "恢復 %s：last_processed=%d",
	CheckpointPending:  "%s 存在 pending 檢查點，將重新重播",
	BackfillFetched:    "已回補 %d 根 K 線（%s）",
	RestoreSeeded:      "已還原 %d 根 K 線至 %s %s 狀態",
	ReplayStarted:      "自檢查點 %[2]d 重播 %[1]s",
	ReplayFinished:     "已重播 %d 根 K 線（%s）",
	CutoverDrained:     "切換階段 %d 已處理 %d 根緩衝 K 線",
	LiveMode:           "管線進入 LIVE（已處理 %d 根緩衝 K 線）",
	Disconnected:       "上游連線中斷：%v，回到 INIT",
	StaleBarDropped:    "捨棄過期 K 線：%s @%d（累計：%d）",
	BufferOverflow:     "緩衝區已滿（%d），捨棄 K 線 %s @%d",
	StartupDeadline:    "啟動未能在 %v 內進入 LIVE",

	// Signals
	SignalEmitted:       "%s 訊號：%s %s @ %.4f TP=%.4f SL=%.4f ATR=%.4f 連勝敗=%d",
	SignalFiltered:      "過濾拒絕 %s %s：%s",
	SignalClosed:        "訊號 %s 觸發 %s：收盤=%.4f mae=%.2f mfe=%.2f",
	SignalSaveFailed:    "儲存訊號 %s 失敗：%v（將不追蹤此訊號）",
	SignalAnomaly:       "%s %s 同時滿足多空條件，皆不發出",
	ObserverPanic:       "觀察者回呼 panic：%v",
	ActiveSignalsLoaded: "已載入 %d 筆未平倉訊號",

	// Streaks
	StreakUpdated:    "連勝敗 %s：%d（勝=%d 敗=%d）",
	StreakSaveFailed: "持久化連勝敗 %s 失敗：%v",
	StreaksLoaded:    "已載入 %d 筆連勝敗狀態",

	// ATR tracker
	ATRWarmupDone: "ATR 暖機：%s %s 載入 %d 筆",

	// Feeds
	BinanceFeedStarted: "Binance 行情訂閱已啟動",
	WsReadError:        "binance ws 讀取錯誤：%v",
	WsParseError:       "binance ws 解析錯誤：%v",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
