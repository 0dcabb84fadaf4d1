package arenalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const marker = "[UnityCrossThreadLogger]"

func roomState(ts, state string) string {
	return marker + ts + ": Match to ABC: MatchGameRoomStateChangedEvent\n" +
		`{"matchGameRoomStateChangedEvent":{"gameRoomInfo":{"gameRoomConfig":{"matchId":"m-1"},` +
		`"stateType":"MatchGameRoomStateType_` + state + `"}}}` + "\n"
}

func greGameState(ts, gs string) string {
	return marker + ts + ": Match to ABC: GreToClientEvent\n" +
		`{"transactionId":"1","greToClientEvent":{"greToClientMessages":[` +
		`{"type":"GREMessageType_GameStateMessage","systemSeatIds":[1],"gameStateMessage":` + gs + `}]}}` + "\n"
}

func lifeRecord(ts string, life string) string {
	return greGameState(ts, `{"players":[{"systemSeatNumber":1,"lifeTotal":`+life+`}]}`)
}

func draftStatus(ts string, pick string) string {
	return marker + ts + "\n<== BotDraftDraftStatus(d-1)\n\n" +
		`{"CurrentModule":"BotDraft","Payload":"{\"DraftStatus\":\"PickNext\",\"PackNumber\":0,\"PickNumber\":` +
		pick + `,\"DraftPack\":[\"90001\",\"90002\",\"90003\"],\"PickedCards\":[]}"}` + "\n"
}

// sampleMainLog yields MatchStarted, LifeChange, MatchEnded and DraftPack.
var sampleMainLog = "Initialize engine version: 2022.3\n" +
	roomState("1/15/2024 7:30:00 PM", "Playing") +
	lifeRecord("1/15/2024 7:30:05 PM", "20") +
	"unrelated chatter\n" +
	lifeRecord("1/15/2024 7:31:00 PM", "18") +
	roomState("1/15/2024 7:40:00 PM", "MatchCompleted") +
	draftStatus("1/15/2024 7:45:00 PM", "0")

var sampleKinds = []EventType{EventMatchStarted, EventLifeChange, EventMatchEnded, EventDraftPack}

func samplePlayerLog() string {
	return greGameState("1/15/2024 7:30:05 PM",
		`{"turnInfo":{"turnNumber":1,"activePlayer":1,"phase":"Phase_Beginning","step":"Step_Upkeep"}}`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

// logDir creates a directory holding one main log with content.
func logDir(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "UTC_Log - 01-15-2024 19.29.00.log")
	writeFile(t, path, content)
	return dir, path
}

func kinds(evs []Event) []EventType {
	out := make([]EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind()
	}
	return out
}

func localTime(s string) time.Time {
	ts, err := time.ParseInLocation("1/2/2006 3:04:05 PM", s, time.Local)
	if err != nil {
		panic(err)
	}
	return ts
}
