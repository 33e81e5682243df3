// Package websocket streams scheduler events to browser and terminal clients.
//
// A central Hub owns every connection. Each client belongs to one stream and
// receives only that stream's messages:
//
//	{"stream_id": "a1b2c3d4", "event": "mount", "frame_id": 7, "frame": {...}}
//	{"stream_id": "a1b2c3d4", "event": "unmount", "frame_id": 6}
//	{"stream_id": "a1b2c3d4", "event": "clear"}
//
// Mount messages carry a full engine.Snapshot so the client never reads
// engine storage. Clients may send a viewport message to switch size class:
//
//	{"event": "viewport", "width_rem": 72}
//	{"event": "viewport", "columns": 96}
//
// Hub.Presenter adapts the hub to scheduler.Presenter. Publishing never
// blocks the scheduler: when the broadcast queue is full the message is
// dropped and logged, and a client whose send buffer is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	sched := scheduler.New(eng, hub.Presenter(streamID), scheduler.SystemClock{})
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, streamID, nil, onViewport)
//	})
package websocket
