package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"WinamaxFeed/internal/adapter/winamax"
	"WinamaxFeed/internal/model"
	"WinamaxFeed/internal/repository"

	"github.com/sirupsen/logrus/hooks/test"
)

func snapshotOf(t *testing.T, payloads ...string) *model.Snapshot {
	t.Helper()
	events := make([]model.RawEvent, 0, len(payloads))
	base := time.Date(2025, 10, 20, 18, 0, 0, 0, time.UTC)
	for i, p := range payloads {
		ev, err := model.NewRawEvent(base.Add(time.Duration(i)*time.Second), model.EventWebsocketMessage,
			map[string]string{"raw": winamax.FramePrefix + p + "]"})
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, ev)
	}
	return &model.Snapshot{
		URL:          "https://www.winamax.fr/paris-sportifs/sports/1",
		Timestamp:    "2025-10-20T18:05:00Z",
		MessageCount: len(events),
		Messages:     events,
	}
}

func newTestService(snap *model.Snapshot) (*MatchService, *repository.SnapshotStore) {
	logger, _ := test.NewNullLogger()
	store := repository.NewSnapshotStore(snap)
	return NewMatchService(store, winamax.NewReducer(logger), logger, "Winamax Data Server"), store
}

func ptr[T any](v T) *T { return &v }

func matchIDs(items []map[string]any) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it["matchId"].(string))
	}
	return ids
}

// twoWay 构造一场带主盘的对阵赛事帧
func twoWay(id, home, away string, start int, homeOdds, drawOdds, awayOdds string) string {
	bet := "b" + id
	return `{"matches":{"` + id + `":{"title":"` + home + ` - ` + away + `","status":"PREMATCH","competitor1Name":"` + home +
		`","competitor2Name":"` + away + `","matchStart":` + itoa(start) + `,"sportId":1,"mainBetId":"` + bet + `"}},` +
		`"bets":{"` + bet + `":{"outcomes":["` + id + `h","` + id + `d","` + id + `a"]}},` +
		`"outcomes":{"` + id + `h":{"label":"` + home + `"},"` + id + `d":{"label":"Match nul"},"` + id + `a":{"label":"` + away + `"}},` +
		`"odds":{"` + id + `h":` + homeOdds + `,"` + id + `d":` + drawOdds + `,"` + id + `a":` + awayOdds + `}}`
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestResolvedOddsOmitMissingIDs(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"1":{"competitor1Name":"Home","competitor2Name":"Away","mainBetId":10}},
		  "bets":{"10":{"outcomes":["100","101"]}},
		  "odds":{"100":1.5},
		  "outcomes":{"100":{"label":"Home"}}}`,
	))

	res, err := svc.ListMatches(context.Background(), MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 {
		t.Fatalf("count = %d, want 1", res.Count)
	}
	want := map[string]any{"Home": json.Number("1.5")}
	if got := res.Matches[0]["odds"]; !reflect.DeepEqual(got, want) {
		t.Errorf("odds = %#v, want %#v", got, want)
	}
}

func TestResolvedOddsDefaultLabel(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"1":{"competitor1Name":"A","competitor2Name":"B","mainBetId":10}},
		  "bets":{"10":{"outcomes":[100]}},
		  "odds":{"100":2.2}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"Outcome 100": json.Number("2.2")}
	if got := res.Matches[0]["odds"]; !reflect.DeepEqual(got, want) {
		t.Errorf("odds = %#v, want %#v", got, want)
	}
}

func TestListMatchesSimplifiedShape(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"5":{"title":"A - B","status":"LIVE","competitor1Name":"A","competitor2Name":"B","matchStart":100,"extra":"x"}}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"matchId":         "5",
		"title":           "A - B",
		"status":          "LIVE",
		"competitor1Name": "A",
		"competitor2Name": "B",
		"matchStart":      json.Number("100"),
	}
	if !reflect.DeepEqual(res.Matches[0], want) {
		t.Errorf("record = %#v, want %#v", res.Matches[0], want)
	}
	if !res.Success {
		t.Error("success should be true")
	}
}

func TestListMatchesExcludesOutrights(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{
			"1":{"title":"Ligue 1 winner"},
			"2":{"competitor1Name":"A","competitor2Name":""},
			"3":{"competitor1Name":"A","competitor2Name":"B"}}}`,
	))
	for name, list := range map[string]func() ([]map[string]any, error){
		"simplified": func() ([]map[string]any, error) {
			res, err := svc.ListMatches(context.Background(), MatchFilter{})
			if err != nil {
				return nil, err
			}
			return res.Matches, nil
		},
		"verbose": func() ([]map[string]any, error) {
			res, err := svc.ListMatchesVerbose(context.Background(), MatchFilter{})
			if err != nil {
				return nil, err
			}
			return res.Matches, nil
		},
	} {
		items, err := list()
		if err != nil {
			t.Fatal(err)
		}
		if got := matchIDs(items); !reflect.DeepEqual(got, []string{"3"}) {
			t.Errorf("%s ids = %v, want [3]", name, got)
		}
	}
}

func TestListMatchesOrdering(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{
			"a":{"competitor1Name":"A","competitor2Name":"B","matchStart":100},
			"b":{"competitor1Name":"C","competitor2Name":"D","matchStart":50},
			"c":{"competitor1Name":"E","competitor2Name":"F"},
			"d":{"competitor1Name":"G","competitor2Name":"H","matchStart":100},
			"0":{"competitor1Name":"I","competitor2Name":"J"}}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "a", "d", "0", "c"}
	if got := matchIDs(res.Matches); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestListMatchesSportAndDateFilters(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{
			"1":{"competitor1Name":"A","competitor2Name":"B","sportId":1,"matchStart":1760983200},
			"2":{"competitor1Name":"C","competitor2Name":"D","sportId":5,"matchStart":1760983200},
			"3":{"competitor1Name":"E","competitor2Name":"F","sportId":1,"matchStart":1761069600},
			"4":{"competitor1Name":"G","competitor2Name":"H","sportId":"1"},
			"5":{"competitor1Name":"I","competitor2Name":"J","sportId":1}}}`,
	))
	ctx := context.Background()

	res, err := svc.ListMatches(ctx, MatchFilter{SportID: ptr(int64(1))})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchIDs(res.Matches); !reflect.DeepEqual(got, []string{"1", "3", "5"}) {
		t.Errorf("sportId=1 ids = %v", got)
	}

	res, err = svc.ListMatches(ctx, MatchFilter{SportID: ptr(int64(1)), Date: "20-10-2025"})
	if err != nil {
		t.Fatal(err)
	}
	// a match without matchStart is not excluded by the date filter
	if got := matchIDs(res.Matches); !reflect.DeepEqual(got, []string{"1", "5"}) {
		t.Errorf("sportId=1&date ids = %v", got)
	}
}

func TestMoreThanIsStrict(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		twoWay("even", "PSG", "OM", 100, "2", "3.2", "2"),
		twoWay("ok", "Lyon", "Nice", 200, "2.05", "3.1", "3.4"),
		twoWay("low", "Lens", "Lille", 300, "1.8", "3.3", "4.5"),
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{MoreThan: ptr(2.0)})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchIDs(res.Matches); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Errorf("morethan=2 ids = %v, want [ok]", got)
	}
}

func TestMoreThanRequiresBothSides(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"1":{"competitor1Name":"A","competitor2Name":"B","mainBetId":10}},
		  "bets":{"10":{"outcomes":[1,2]}},
		  "outcomes":{"1":{"label":"A"},"2":{"label":"Match nul"}},
		  "odds":{"1":5,"2":5}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{MoreThan: ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 {
		t.Errorf("match without away odds must be excluded, got %v", matchIDs(res.Matches))
	}
}

func TestMoreThanPrefersExactLabel(t *testing.T) {
	// "Real Madrid" contains "Real"; exact equality assigns it to the away side
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"1":{"competitor1Name":"Real","competitor2Name":"Real Madrid","mainBetId":10}},
		  "bets":{"10":{"outcomes":[2,1]}},
		  "outcomes":{"1":{"label":"Real"},"2":{"label":"Real Madrid"}},
		  "odds":{"1":2.5,"2":1.2}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{MoreThan: ptr(2.0)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 {
		t.Errorf("away odds 1.2 must exclude the match, got %v", matchIDs(res.Matches))
	}
}

func TestAnyoneHasRange(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		twoWay("in", "PSG", "OM", 100, "6.5", "4.2", "1.49"),
		twoWay("out", "Lyon", "Nice", 200, "6.5", "4.2", "1.50"),
		twoWay("low", "Lens", "Lille", 300, "1.4", "4.2", "7"),
		twoWay("below", "Brest", "Metz", 400, "1.39", "4.2", "7"),
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{AnyoneHas: ptr(1.4)})
	if err != nil {
		t.Fatal(err)
	}
	if got := matchIDs(res.Matches); !reflect.DeepEqual(got, []string{"in", "low"}) {
		t.Errorf("anyonehas=1.4 ids = %v, want [in low]", got)
	}
}

func TestAnyoneHasIgnoresSideMarkets(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		`{"matches":{"1":{"competitor1Name":"A","competitor2Name":"B","mainBetId":10}},
		  "bets":{"10":{"outcomes":[1,2]}},
		  "outcomes":{"1":{"label":"Plus de 2,5"},"2":{"label":"Match nul"}},
		  "odds":{"1":1.45,"2":3.3}}`,
	))
	res, err := svc.ListMatches(context.Background(), MatchFilter{AnyoneHas: ptr(1.4)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 {
		t.Error("odds on a non-main outcome must not satisfy anyonehas")
	}

	res, err = svc.ListMatches(context.Background(), MatchFilter{AnyoneHas: ptr(3.3)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 {
		t.Error("draw odds must satisfy anyonehas")
	}
}

func TestAnyoneHasRangeBounds(t *testing.T) {
	tests := []struct {
		v         float64
		low, high string
	}{
		{1.4, "1.4", "1.49"},
		{2, "2", "2.09"},
		{1.2345, "1.2345", "1.325"},
	}
	for _, tt := range tests {
		low, high := anyoneHasRange(tt.v)
		if low.String() != tt.low || high.String() != tt.high {
			t.Errorf("anyoneHasRange(%v) = [%s, %s], want [%s, %s]", tt.v, low, high, tt.low, tt.high)
		}
	}
}

func TestListMatchesVerbose(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t,
		twoWay("1", "PSG", "OM", 100, "1.8", "3.6", "4.2"),
		`{"sports":{"1":{"label":"Football","mainMatchCount":12}},"outcomes":{"1h":{"hotUsers":7}},"odds":{"orphan":9}}`,
	))
	res, err := svc.ListMatchesVerbose(context.Background(), MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.TotalOdds != 4 || res.TotalOutcomes != 3 {
		t.Fatalf("counts = %d/%d/%d", res.Count, res.TotalOdds, res.TotalOutcomes)
	}
	item := res.Matches[0]
	if item["matchId"] != "1" || item["status"] != "PREMATCH" {
		t.Errorf("match fields missing: %#v", item)
	}
	odds := item["odds"].(map[string]any)
	home := odds["PSG"].(map[string]any)
	want := map[string]any{"odds": json.Number("1.8"), "outcomeId": "1h", "label": "PSG", "hotUsers": json.Number("7")}
	if !reflect.DeepEqual(home, want) {
		t.Errorf("odds[PSG] = %#v, want %#v", home, want)
	}
	sport := item["sportInfo"].(map[string]any)
	if sport["label"] != "Football" {
		t.Errorf("sportInfo = %#v", sport)
	}
}

func TestGetMatch(t *testing.T) {
	svc, _ := newTestService(snapshotOf(t, twoWay("42", "PSG", "OM", 100, "1.8", "3.6", "4.2")))
	ctx := context.Background()

	item, err := svc.GetMatch(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if item["matchId"] != "42" || item["competitor1Name"] != "PSG" {
		t.Errorf("item = %#v", item)
	}
	if odds := item["odds"].(map[string]any); len(odds) != 3 {
		t.Errorf("odds = %#v", odds)
	}

	if _, err := svc.GetMatch(ctx, "does-not-exist"); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("err = %v, want ErrMatchNotFound", err)
	}
}

func TestQueriesSeeSwappedSnapshot(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()

	res, err := svc.ListMatches(ctx, MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 || res.Matches == nil {
		t.Fatalf("empty snapshot should give an empty, non-nil list: %#v", res)
	}

	store.Publish(snapshotOf(t, twoWay("1", "A", "B", 10, "2", "3", "4")))
	res, err = svc.ListMatches(ctx, MatchFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 {
		t.Errorf("count after publish = %d, want 1", res.Count)
	}
}

func TestStatusAndInfo(t *testing.T) {
	snap := snapshotOf(t, twoWay("1", "A", "B", 10, "2", "3", "4"), `{"broken`)
	svc, _ := newTestService(snap)

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != "running" || status.Server != "Winamax Data Server" || status.MessagesCount != 2 {
		t.Errorf("status = %+v", status)
	}
	wantTables := TableSizes{Matches: 1, Odds: 3, Outcomes: 3, Bets: 1, Sports: 0}
	if status.Tables != wantTables {
		t.Errorf("tables = %+v, want %+v", status.Tables, wantTables)
	}
	if status.Reduce.FramesApplied != 1 || status.Reduce.SkippedParseError != 1 {
		t.Errorf("reduce stats = %+v", status.Reduce)
	}
	if status.SnapshotAgeSeconds == nil {
		t.Error("snapshot age should be reported for a store source")
	}

	info := svc.Info()
	if info.URL != snap.URL || info.Timestamp != snap.Timestamp || info.MessageCount != 2 {
		t.Errorf("info = %+v", info)
	}
	if svc.Raw() != snap {
		t.Error("Raw should return the current snapshot")
	}
}

func TestCanceledContext(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ListMatches(ctx, MatchFilter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
