package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newNodeCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "node",
		Short: "Cluster membership operations",
	}
	parent.AddCommand(newNodeAddCmd())
	parent.AddCommand(newNodeRemoveCmd())
	parent.AddCommand(newNodeReinitCmd())
	parent.AddCommand(newNodeSetPrimaryCmd())
	return parent
}

func newNodeAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <address>",
		Short: "Add a database node to the load balancer backend table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			if err := rt.controller.AddNode(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Node %s added\n", args[0])
			return nil
		},
	}
}

func newNodeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <address>",
		Short: "Remove a replica from the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			if err := rt.controller.RemoveNode(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Node %s removed\n", args[0])
			return nil
		},
	}
}

func newNodeReinitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reinit <address>",
		Short: "Discard and rebuild a replica's data from the primary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			if err := rt.controller.ReinitNode(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Node %s reinitialization started\n", args[0])
			return nil
		},
	}
}

func newNodeSetPrimaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-primary <address>",
		Short: "Switch the primary role to the named replica",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime()
			if err != nil {
				return err
			}
			if err := rt.controller.Promote(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Primary change to %s requested\n", args[0])
			return nil
		},
	}
}
