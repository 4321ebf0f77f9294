// Package logx is classhud's structured logging wrapper over zerolog.
//
// Every component logs through a Logger tagged with Named, so each line
// carries a "comp" key. A Service owns the sinks: stderr console, a JSON
// lines file and an optional Telegram chat for warnings. In HUD mode the
// console sink is replaced by the file so log lines never tear the screen.
package logx
