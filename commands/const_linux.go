package commands

const (
	_etc = "/usr/local/etc/sri-sheets"

	DEFAULT_CONFIG = _etc + "/sri-sheets.yaml"
)
