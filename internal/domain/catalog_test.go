package domain

import "testing"

func TestEpisodeList_LatestAndByNumber(t *testing.T) {
	var empty EpisodeList
	if _, ok := empty.Latest(); ok {
		t.Fatalf("空列表不应有最新一集")
	}

	l := EpisodeList{
		{Ref: "/ep-3-b/", Number: 3},
		{Ref: "/ep-3-a/", Number: 3},
		{Ref: "/ep-1/", Number: 1},
	}
	if ep, ok := l.Latest(); !ok || ep.Ref != "/ep-3-b/" {
		t.Fatalf("Latest 应返回列表首项：%+v %v", ep, ok)
	}
	if ep, ok := l.ByNumber(3); !ok || ep.Ref != "/ep-3-b/" {
		t.Fatalf("同号多集应返回较新的一条：%+v %v", ep, ok)
	}
	if _, ok := l.ByNumber(2); ok {
		t.Fatalf("不存在的集数应返回 ok=false")
	}
}
