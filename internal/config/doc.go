// Package config manages Stagehand user settings stored at ~/.stagehand/config.yaml.
// Settings are loaded via Viper with STAGEHAND_ prefixed environment variable
// overrides, so unattended deployment pipelines can drive an install without
// touching the file (e.g. STAGEHAND_SILENT=1, STAGEHAND_INSTALL_ROOT=/opt/app).
package config
