package render

import (
	"go.mau.fi/util/ptr"

	"github.com/beeper/livelink-bridge/pkg/livelink"
)

func samplePage() *livelink.ResultPage {
	return &livelink.ResultPage{
		TotalResults: ptr.Ptr(42),
		StartIndex:   ptr.Ptr(2),
		ItemsPerPage: ptr.Ptr(2),
		Hits: []livelink.SearchHit{
			{
				Title:        "Budget.xlsx",
				ViewURL:      "http://ll.example.com/view/1",
				DownloadURL:  "http://ll.example.com/fetch/1",
				MIMEType:     "application/vnd.ms-excel",
				IconURL:      "http://ll.example.com/img/xls.gif",
				SummaryHTML:  "The <HH>budget</HH> for Q3",
				CreatedBy:    "jdoe",
				CreatedDate:  "2024-03-05",
				SizeBytes:    ptr.Ptr[int64](2048),
				LocationURL:  "http://ll.example.com/folder/9",
				LocationName: "Finance",
			},
			{
				Title:       "Notes",
				ViewURL:     "http://ll.example.com/view/2",
				SummaryHTML: "plain",
			},
		},
	}
}
