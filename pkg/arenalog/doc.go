// Package arenalog tails the MTG Arena client logs and turns them into a
// stream of typed game events.
//
// The client writes two logs. The main log (UTC_Log*.log, one per
// session) carries match, draft and deck records; Player.log carries the
// same game-rules-engine traffic in more detail. A Watcher follows either
// or both and delivers events on a channel:
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	events, errs, err := arenalog.Watch(ctx, arenalog.WithPlayerLog(""))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    select {
//	    case ev, ok := <-events:
//	        if !ok {
//	            return
//	        }
//	        switch ev := ev.(type) {
//	        case event.LifeChange:
//	            fmt.Printf("seat %d now at %d\n", ev.Player, ev.NewLife)
//	        case event.DraftPick:
//	            fmt.Printf("picked %d\n", ev.CardID)
//	        }
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Printf("error: %v", err)
//	    }
//	}
//
// Finished files are parsed with ParseFile, which returns an iterator.
//
// # Resuming
//
// With WithCheckpointStore the Watcher saves the byte offset of the last
// complete record after every read, and a new Watcher continues from
// there. Truncated or replaced files are read again from the start.
//
// # Card names
//
// Parsers ask for card metadata by definition id. Pass a Resolver (such
// as the queue in the arenalog CLI) with WithResolver; lookups are
// submitted without ever blocking the parser, and names that are already
// resolved are attached to later events.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Wizards of the Coast.
package arenalog
