package commands

const (
	_etc = "/usr/local/etc/com.github.sri-sheets"

	DEFAULT_CONFIG = _etc + "/sri-sheets.yaml"
)
