// Command ckdserve serves a chronic kidney disease classifier over HTTP.
//
// The model is a tree-ensemble artifact file produced by an external training
// job. Every prediction checks the file's modification time and reloads it
// when it changed, so a retrained model is picked up without a restart.
//
//	ckdserve serve   --artifact ckd_model.json [--watch] [--addr :8000]
//	ckdserve check   --artifact ckd_model.json
//	ckdserve fixture 1 --artifact ckd_model.json
//
// Configuration is layered: --config file, then CKDSERVE_* environment
// variables, then flags. The API document is served at /swagger/doc.json.
package main
