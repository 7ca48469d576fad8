package config

import (
	"sync"
)

// ConfigManager holds the loaded configuration and the path it came from.
// Commands share one manager; the runner reads a copy.
// ConfigManager 保存已加载的配置及其路径，命令共享同一个管理器，运行器读取副本。
type ConfigManager struct {
	configPath string
	mutex      sync.RWMutex
	config     *GlobalConfig
}

// NewConfigManager creates a new configuration manager instance
// NewConfigManager 创建新的配置管理器实例
func NewConfigManager(configPath string) *ConfigManager {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return &ConfigManager{configPath: configPath}
}

// LoadConfig loads and validates the configuration from the manager's path
// LoadConfig 从管理器路径加载并验证配置
func (cm *ConfigManager) LoadConfig() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cfg, err := LoadGlobalConfig(cm.configPath)
	if err != nil {
		return err
	}
	cm.config = cfg
	return nil
}

// SaveConfig saves the current configuration, keeping file comments
// SaveConfig 保存当前配置并保留文件注释
func (cm *ConfigManager) SaveConfig() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	return SaveGlobalConfig(cm.configPath, cm.config)
}

// GetConfig returns a copy of the current configuration, or nil before LoadConfig
// GetConfig 返回当前配置的副本，LoadConfig 之前返回 nil
func (cm *ConfigManager) GetConfig() *GlobalConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	cfgCopy := *cm.config
	return &cfgCopy
}

// UpdateConfig replaces the current configuration
// UpdateConfig 替换当前配置
func (cm *ConfigManager) UpdateConfig(newConfig *GlobalConfig) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.config = newConfig
}

// GetConfigPath returns the configuration file path
// GetConfigPath 返回配置文件路径
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Validate validates the current configuration
// Validate 验证当前配置
func (cm *ConfigManager) Validate() error {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if cm.config == nil {
		return nil
	}
	return cm.config.Validate()
}
