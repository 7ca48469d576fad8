package logger

// LoggingConfig defines the configuration for logging.
// LoggingConfig 定义日志配置。
type LoggingConfig struct {
	// Level: debug, info, warn, error
	// Level: 日志级别（debug, info, warn, error）
	Level string `yaml:"level"`
	// Encoding: "console" (default) or "json"
	// Encoding: 输出编码，"console"（默认）或 "json"
	Encoding string `yaml:"encoding"`
	// Path: optional log file; empty means stderr only
	// Path: 可选日志文件路径，为空时只输出到 stderr
	Path string `yaml:"path"`
	// MaxSize: 轮转前的最大大小（MB）
	MaxSize int `yaml:"max_size"`
	// MaxBackups: 保留的旧文件最大数量
	MaxBackups int `yaml:"max_backups"`
	// MaxAge: 保留旧文件的最大天数
	MaxAge int `yaml:"max_age"`
	// Compress: 是否压缩旧文件
	Compress bool `yaml:"compress"`
}
