package config

const (
	defaultProfileDir            = "~/.local/share/danmaku"
	defaultLogDir                = "~/.local/share/danmaku/logs"
	defaultDandanplayBaseURL     = "https://api.dandanplay.net"
	defaultDandanplayUserAgent   = "danmakud/1.0"
	defaultRequestTimeout        = 20
	defaultRequestsPerSecond     = 5
	defaultScrollDuration        = 6
	minScrollDuration            = 4
	defaultMaxComments           = 3000
	defaultFontName              = "Arial"
	defaultFontSize              = 48
	defaultScrollLanes           = 12
	defaultTopLanes              = 5
	defaultBottomLanes           = 5
	defaultMPVSocket             = "/tmp/mpvsocket"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultHistoryRetentionDays  = 90
	defaultHistoryEnabled        = true
	defaultServiceEnabled        = true
	defaultShowNotifications     = true
	defaultWithRelated           = true
	defaultConfigPathLiteral     = "~/.config/danmaku/config.toml"
	defaultProjectConfigFileName = "danmaku.toml"
	defaultTokenFileName         = "token.json"
	defaultHistoryFileName       = "history.db"
	defaultDaemonLockFileName    = "danmakud.lock"
	defaultDaemonSocketFileName  = "danmakud.sock"
	defaultDaemonLogFileName     = "danmakud.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Service: Service{
			Enabled:           defaultServiceEnabled,
			ShowNotifications: defaultShowNotifications,
		},
		Dandanplay: Dandanplay{
			BaseURL:           defaultDandanplayBaseURL,
			UserAgent:         defaultDandanplayUserAgent,
			WithRelated:       defaultWithRelated,
			RequestTimeout:    defaultRequestTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
		},
		Overlay: Overlay{
			ScrollDuration: defaultScrollDuration,
			MaxComments:    defaultMaxComments,
			FontName:       defaultFontName,
			FontSize:       defaultFontSize,
			ScrollLanes:    defaultScrollLanes,
			TopLanes:       defaultTopLanes,
			BottomLanes:    defaultBottomLanes,
		},
		Paths: Paths{
			ProfileDir: defaultProfileDir,
			LogDir:     defaultLogDir,
		},
		Player: Player{
			MPVSocket: defaultMPVSocket,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		History: History{
			Enabled:       defaultHistoryEnabled,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
