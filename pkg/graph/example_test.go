package graph_test

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/taskmap/pkg/graph"
)

func ExampleWriteSnapshot() {
	s := graph.NewSnapshot("Groceries")
	s.Nodes = append(s.Nodes, graph.Node{
		ID:   "root",
		Type: graph.NodeTypeTask,
		Data: graph.NodeData{Label: "Shop", Level: graph.LevelRoot},
	})

	var buf bytes.Buffer
	if err := graph.WriteSnapshot(s, &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Print(buf.String())
	// Output:
	// {
	//   "nodes": [
	//     {
	//       "id": "root",
	//       "type": "task",
	//       "position": {
	//         "x": 0,
	//         "y": 0
	//       },
	//       "data": {
	//         "label": "Shop",
	//         "level": 0,
	//         "slot": 0
	//       }
	//     }
	//   ],
	//   "edges": [],
	//   "pinnedNodeIds": [],
	//   "batchTitle": "Groceries"
	// }
}

func ExampleUnmarshalSnapshot() {
	// Older snapshots lack pinnedNodeIds and batchTitle.
	data := []byte(`{"nodes":[],"edges":[]}`)

	s, err := graph.UnmarshalSnapshot(data)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("title=%q pinned=%d\n", s.BatchTitle, len(s.PinnedNodeIDs))
	// Output:
	// title="Untitled Batch" pinned=0
}

func ExampleIndex_Descendants() {
	idx := graph.NewIndex([]graph.Edge{
		graph.NewEdge("launch", "design"),
		graph.NewEdge("design", "mockups"),
		graph.NewEdge("launch", "marketing"),
	})
	fmt.Println(idx.Descendants("launch"))
	// Output:
	// [design marketing mockups]
}
