package framework

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset 框架构建预设
type Preset struct {
	Label          string `yaml:"label"`
	InstallCommand string `yaml:"install_command"`
	BuildCommand   string `yaml:"build_command"`
	OutputDir      string `yaml:"output_dir"`
}

// Presets 框架名 → 预设
type Presets map[string]Preset

// Load 从YAML文件加载框架预设
func Load(path string) (Presets, error) {
	if path == "" {
		return Presets{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取框架预设文件失败: %w", err)
	}

	var presets Presets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("解析框架预设文件失败: %w", err)
	}

	return presets, nil
}

// Apply 用预设补全项目未显式配置的构建指令
func (p Presets) Apply(name, installCmd, buildCmd, outputDir string) (string, string, string) {
	preset, ok := p[name]
	if !ok {
		return installCmd, buildCmd, outputDir
	}

	if installCmd == "" {
		installCmd = preset.InstallCommand
	}
	if buildCmd == "" {
		buildCmd = preset.BuildCommand
	}
	if outputDir == "" {
		outputDir = preset.OutputDir
	}
	return installCmd, buildCmd, outputDir
}
