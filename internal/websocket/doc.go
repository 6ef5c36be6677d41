// Package websocket streams pipeline progress to browsers. The Hub implements
// operations.WebSocketHub: every operation snapshot the status broadcaster emits
// is fanned out to all connected clients as an events.Message.
package websocket
