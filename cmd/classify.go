package cmd

import (
	"fmt"

	"github.com/kozaktomas/doppelganger/internal/pose"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <keypoints.json>",
	Short: "Classify the pose in a keypoints file",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	kp, err := readKeypoints(args[0])
	if err != nil {
		return err
	}

	cls := pose.Classify(kp)
	if mustGetBool(cmd, "json") {
		return outputJSON(cls)
	}

	fmt.Printf("Pose: %s\n", cls.Category)
	if d := cls.Diagnostics; d != nil {
		fmt.Printf("  Left wrist:  x=%+.3f y=%+.3f\n", d.LeftWristX, d.LeftWristY)
		fmt.Printf("  Right wrist: x=%+.3f y=%+.3f\n", d.RightWristX, d.RightWristY)
	} else {
		fmt.Printf("  Only %d landmarks, need %d for classification\n", len(kp), pose.MinLandmarks)
	}
	return nil
}
