package webchat

import _ "embed"

// DefaultWidgetJS is the embeddable chat client served at /widget.js.
//
//go:embed widget.js
var DefaultWidgetJS []byte
