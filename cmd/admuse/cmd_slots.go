package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"admuse/internal/llm"
	"admuse/internal/store"
)

var slotOffering string

// regenerateCmd removes one persona and refills the slot.
var regenerateCmd = &cobra.Command{
	Use:   "regenerate [slot index]",
	Short: "Replace one persona and regenerate its portrait",
	Long: `Clears the slot at the given index, asks the text collaborator for one
replacement persona distinct from the rest of the set, and generates a
portrait for it. Other slots are untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegenerate,
}

// retryCmd reruns portrait generation for one slot.
var retryCmd = &cobra.Command{
	Use:   "retry [slot index]",
	Short: "Retry portrait generation for one slot",
	Long: `Reruns the portrait loop for the slot at the given index, keeping its
persona text. Works on slots that exhausted their automatic retries.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

// showCmd prints the current persona set.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current persona set",
	RunE:  runShow,
}

// windowCmd changes the visible window.
var windowCmd = &cobra.Command{
	Use:   "window [count]",
	Short: "Set how many persona slots are visible (1-5)",
	Long: `Changes the visible window. Hidden slots keep their personas; they are
just excluded from batch runs, retries, and output until the window grows
again.`,
	Args: cobra.ExactArgs(1),
	RunE: runWindow,
}

func init() {
	regenerateCmd.Flags().StringVar(&slotOffering, "offering", "", "override the stored offering description")
	retryCmd.Flags().StringVar(&slotOffering, "offering", "", "override the stored offering description")
}

func parseSlotIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid slot index %q", arg)
	}
	return index, nil
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	index, err := parseSlotIndex(args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(true)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := cmdContext()
	// The brief was persisted by the original generate; the flag only
	// overrides it.
	if slotOffering != "" {
		if err := p.orch.SetBrief(ctx, llm.Request{OfferingDescription: slotOffering}); err != nil {
			return err
		}
	}

	stop := watchEvents(p.orch)
	err = p.orch.RemoveAndRegenerate(ctx, index)
	stop()
	if err != nil {
		return err
	}

	fmt.Printf("Slot %d regenerated.\n", index)
	printSlots(p)
	return nil
}

func runRetry(cmd *cobra.Command, args []string) error {
	index, err := parseSlotIndex(args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := cmdContext()
	if slotOffering != "" {
		if err := p.orch.SetBrief(ctx, llm.Request{OfferingDescription: slotOffering}); err != nil {
			return err
		}
	}

	stop := watchEvents(p.orch)
	err = p.orch.RetrySlot(ctx, index)
	stop()
	if err != nil {
		return err
	}

	fmt.Printf("Slot %d portrait regenerated.\n", index)
	printSlots(p)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.close()

	printSlots(p)
	return nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	n, err := parseSlotIndex(args[0])
	if err != nil {
		return err
	}

	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.close()

	if err := p.store.SetVisibleCount(cmdContext(), n); err != nil {
		return err
	}
	fmt.Printf("Visible window set to %d.\n", p.store.VisibleCount())
	return nil
}

// printSlots renders the visible slots as a compact table.
func printSlots(p *pipeline) {
	slots := p.store.VisibleSlots()
	if len(slots) == 0 {
		fmt.Println("No personas yet. Run 'admuse generate' first.")
		return
	}

	for i, slot := range slots {
		if slot.Persona == nil {
			fmt.Printf("[%d] (empty)\n", i)
			continue
		}
		pp := slot.Persona
		fmt.Printf("[%d] %s (%s %s, age %d-%d)\n", i, pp.Title, pp.Race, pp.Gender, pp.AgeMin, pp.AgeMax)
		fmt.Printf("    interests: %s, %s\n", pp.Interests[0], pp.Interests[1])
		if pp.Tagline != "" {
			fmt.Printf("    tagline:   %s\n", pp.Tagline)
		}
		switch {
		case pp.PortraitURL != "":
			fmt.Printf("    portrait:  %s\n", pp.PortraitURL)
		case slot.Status == store.StatusExhausted:
			fmt.Printf("    portrait:  failed (%s), run 'admuse retry %d' to try again\n", slot.LastError, i)
		default:
			fmt.Printf("    portrait:  %s\n", slot.Status)
		}
	}
}
