// Package session stores game sessions for the snake service.
//
// Manager keeps sessions in memory under case-insensitive IDs. Generated IDs
// are four hex characters so they are easy to type into a client. Each
// session owns its own engine; the manager only guards the session map, and
// callers lock a session before touching its engine.
//
// Persistence is optional. FilePersistence writes one JSON file per session
// and RedisPersistence writes one key per session plus an index set. Both
// store the effective game configuration next to the state, so a restored
// session keeps any overrides it was created with. A session missing from
// memory is loaded from storage on Get.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions", configs)
//	if err != nil {
//		return err
//	}
//	manager := session.NewManagerWithPersistence(store, session.WithLogger(logger))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
//
//	sess, err := manager.Create("", "classic", config)
package session
