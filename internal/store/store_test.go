package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/rollstats/internal/dice"
	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "rollstats.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

func d6(values ...int) dice.Roll {
	results := make([]dice.Result, len(values))
	for i, v := range values {
		results[i] = dice.Result{Value: v, Active: true}
	}
	return dice.Roll{Terms: []dice.Term{dice.Die{Sides: 6, Results: results}}}
}

func encoded(t *testing.T, roll dice.Roll) *string {
	t.Helper()
	data, err := dice.Encode(roll)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(data)
	return &s
}

func TestPlayersKeepRegistrationOrder(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	for _, name := range []string{"zed", "amy", " bob ", "amy"} {
		if _, err := st.AddPlayer(ctx, name); err != nil {
			t.Fatalf("add %q: %v", name, err)
		}
	}
	added, err := st.AddPlayer(ctx, "zed")
	if err != nil || added {
		t.Fatalf("expected duplicate to be ignored, got %v %v", added, err)
	}
	players, err := st.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"zed", "amy", "bob"}
	if len(players) != len(want) {
		t.Fatalf("unexpected players: %v", players)
	}
	for i := range want {
		if players[i] != want[i] {
			t.Fatalf("players = %v, want %v", players, want)
		}
	}
}

func TestAddPlayerRejectsReservedNames(t *testing.T) {
	st := openStore(t)
	for _, name := range []string{"", "  ", "All"} {
		if _, err := st.AddPlayer(context.Background(), name); !errors.Is(err, ErrInvalidPlayer) {
			t.Fatalf("AddPlayer(%q) err = %v, want ErrInvalidPlayer", name, err)
		}
	}
}

func TestListRollsChronological(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inserts := []struct {
		player string
		at     time.Time
		value  int
	}{
		{player: "amy", at: base.Add(2 * time.Minute), value: 3},
		{player: "bob", at: base, value: 1},
		{player: "amy", at: base.Add(time.Minute), value: 2},
		{player: "bob", at: base.Add(2 * time.Minute), value: 4},
	}
	for _, in := range inserts {
		if _, err := st.InsertRoll(ctx, in.player, in.at, d6(in.value)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	records, err := st.ListRolls(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 rolls, got %d", len(records))
	}
	for i, want := range []int{1, 2, 3, 4} {
		die := records[i].Roll.Terms[0].(dice.Die)
		if die.Results[0].Value != want {
			t.Fatalf("record %d holds %d, want %d", i, die.Results[0].Value, want)
		}
	}
	if !records[0].RolledAt.Equal(base) {
		t.Fatalf("unexpected timestamp: %v", records[0].RolledAt)
	}
	if records[2].ID > records[3].ID {
		t.Fatalf("expected ties ordered by id")
	}
}

func TestInsertRollRejectsAggregate(t *testing.T) {
	st := openStore(t)
	if _, err := st.InsertRoll(context.Background(), "All", time.Now(), d6(1)); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("expected ErrInvalidPlayer, got %v", err)
	}
}

func TestImportMessages(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	garbage := `{"class":"ChatMessage"}`
	export := model.Export{
		Users: []model.User{{ID: "u1", Name: "amy"}, {ID: "u2", Name: "bob"}},
		Messages: []model.Message{
			{User: "u2", Timestamp: 3000, Roll: encoded(t, d6(6))},
			{User: "u1", Timestamp: 1000, Roll: encoded(t, d6(2, 5))},
			{User: "u1", Timestamp: 2000, Roll: &garbage},
			{Speaker: &model.MessageSpeaker{Alias: "carl"}, Timestamp: 4000, Rolls: []string{*encoded(t, d6(1))}},
			{User: "u1", Timestamp: 5000, Content: "hello"},
			{Timestamp: 6000, Roll: encoded(t, d6(4))},
		},
	}
	log, hook := logtest.NewNullLogger()
	res, err := st.ImportMessages(ctx, export, log)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Players != 3 || res.Rolls != 3 || res.Skipped != 2 {
		t.Fatalf("unexpected import result: %+v", res)
	}
	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 2 {
		t.Fatalf("expected 2 warnings, got %d", warnings)
	}

	players, err := st.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 3 || players[0] != "amy" || players[1] != "bob" || players[2] != "carl" {
		t.Fatalf("unexpected roster: %v", players)
	}
	records, err := st.ListRolls(ctx)
	if err != nil {
		t.Fatalf("rolls: %v", err)
	}
	if len(records) != 3 || records[0].Player != "amy" || records[1].Player != "bob" || records[2].Player != "carl" {
		t.Fatalf("unexpected roll order: %+v", records)
	}
}

func TestOversizedDiceAreNotPersisted(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	huge := dice.Roll{Terms: []dice.Term{dice.Die{Sides: 1 << 62, Results: []dice.Result{{Value: 1, Active: true}}}}}
	if _, err := st.InsertRoll(ctx, "amy", time.Now(), huge); !errors.Is(err, histogram.ErrInvalidFaces) {
		t.Fatalf("expected ErrInvalidFaces, got %v", err)
	}

	raw := `{"formula":"1d4611686018427387904","terms":[{"class":"Die","faces":4611686018427387904,"results":[{"result":1,"active":true}]}]}`
	export := model.Export{
		Users: []model.User{{ID: "u1", Name: "amy"}},
		Messages: []model.Message{
			{User: "u1", Timestamp: 1000, Roll: &raw},
			{User: "u1", Timestamp: 2000, Roll: encoded(t, d6(3))},
		},
	}
	log, hook := logtest.NewNullLogger()
	res, err := st.ImportMessages(ctx, export, log)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Rolls != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected import result: %+v", res)
	}
	if len(hook.AllEntries()) != 1 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("expected one warning, got %+v", hook.AllEntries())
	}
	records, err := st.ListRolls(ctx)
	if err != nil {
		t.Fatalf("rolls: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only the d6 roll, got %+v", records)
	}
}

func TestImportPrefersSpeakerAliasOverUnknownUser(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	export := model.Export{
		Users: []model.User{{ID: "u1", Name: "amy"}},
		Messages: []model.Message{
			{User: "gone42", Speaker: &model.MessageSpeaker{Alias: "dave"}, Timestamp: 1000, Roll: encoded(t, d6(2))},
			{User: "u1", Speaker: &model.MessageSpeaker{Alias: "Narrator"}, Timestamp: 2000, Roll: encoded(t, d6(4))},
			{User: "ghost7", Timestamp: 3000, Roll: encoded(t, d6(5))},
		},
	}
	log, _ := logtest.NewNullLogger()
	if _, err := st.ImportMessages(ctx, export, log); err != nil {
		t.Fatalf("import: %v", err)
	}
	players, err := st.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	want := []string{"amy", "dave", "ghost7"}
	if len(players) != len(want) {
		t.Fatalf("roster = %v, want %v", players, want)
	}
	for i := range want {
		if players[i] != want[i] {
			t.Fatalf("roster = %v, want %v", players, want)
		}
	}
}

func TestImportTwiceSkipsDuplicates(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	export := model.Export{
		Users: []model.User{{ID: "u1", Name: "amy"}},
		Messages: []model.Message{
			{User: "u1", Timestamp: 1000, Roll: encoded(t, d6(2))},
			{User: "u1", Timestamp: 2000, Rolls: []string{*encoded(t, d6(3)), *encoded(t, d6(4))}},
		},
	}
	log, _ := logtest.NewNullLogger()
	first, err := st.ImportMessages(ctx, export, log)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Rolls != 3 || first.Duplicates != 0 {
		t.Fatalf("unexpected first import: %+v", first)
	}
	second, err := st.ImportMessages(ctx, export, log)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Rolls != 0 || second.Duplicates != 3 || second.Players != 0 {
		t.Fatalf("unexpected second import: %+v", second)
	}
	records, err := st.ListRolls(ctx)
	if err != nil {
		t.Fatalf("rolls: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 rolls after re-import, got %d", len(records))
	}
}

func TestDecodeExport(t *testing.T) {
	data := []byte(`{"users":[{"_id":"u1","name":"amy"}],"messages":[{"user":"u1","timestamp":1700000000000,"rolls":["{}"]}]}`)
	export, err := model.DecodeExport(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if export.UserNames()["u1"] != "amy" {
		t.Fatalf("unexpected users: %+v", export.Users)
	}
	if got := export.Messages[0].RolledAt().UnixMilli(); got != 1700000000000 {
		t.Fatalf("unexpected timestamp: %d", got)
	}
	if _, err := model.DecodeExport([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
