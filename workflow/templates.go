package workflow

// Built-in workflow templates for the fashion automation domain. Each
// template wires a small task graph against the standard agent types;
// callers tune individual tasks through Spec.TemplateParams (keyed by
// "<task>_params") and override parallelism and rollback through the
// spec's top-level fields.

func (e *Engine) registerBuiltinTemplates() {
	e.templates[TypeFashionBrandLaunch] = e.brandLaunchTemplate
	e.templates[TypeProductLaunch] = e.productLaunchTemplate
	e.templates[TypeMarketingCampaign] = e.marketingCampaignTemplate
	e.templates[TypeContentGeneration] = e.contentGenerationTemplate
}

// templateParams extracts the parameter map for a template task, e.g.
// "visual_assets_params".
func templateParams(spec Spec, key string) map[string]any {
	v, ok := spec.TemplateParams[key]
	if !ok {
		return map[string]any{}
	}
	params, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return params
}

func applySpecPolicy(w *Workflow, e *Engine, spec Spec) {
	w.CreatedBy = spec.CreatedBy
	w.ContinueOnFailure = spec.ContinueOnFailure
	if spec.MaxParallelTasks > 0 {
		w.MaxParallelTasks = spec.MaxParallelTasks
	} else {
		w.MaxParallelTasks = e.defaults.MaxParallelTasks
	}
	if spec.EnableRollback != nil {
		w.EnableRollback = *spec.EnableRollback
	}
}

// brandLaunchTemplate builds the full brand launch graph: visual assets
// first, website and inventory in parallel behind it, marketing last.
// Generated assets are compensable.
func (e *Engine) brandLaunchTemplate(spec Spec) (*Workflow, error) {
	w := NewWorkflow("Fashion Brand Launch", TypeFashionBrandLaunch)
	w.Description = "Complete automation for launching a luxury fashion brand"
	w.EnableRollback = true
	applySpecPolicy(w, e, spec)

	visual := NewTask(TaskSpec{
		Name:               "Generate Brand Visual Assets",
		Description:        "Create logo, banners, and product images",
		AgentType:          "visual_content",
		AgentMethod:        "batch_generate",
		Parameters:         templateParams(spec, "visual_assets_params"),
		CompensationMethod: "delete_generated_content",
	})
	website := NewTask(TaskSpec{
		Name:        "Build Brand Website",
		Description: "Create WordPress luxury theme and deploy",
		AgentType:   "web_development",
		AgentMethod: "build_website",
		Parameters:  templateParams(spec, "website_params"),
		DependsOn:   []string{visual.ID},
	})
	inventory := NewTask(TaskSpec{
		Name:        "Setup Inventory System",
		Description: "Initialize inventory tracking for products",
		AgentType:   "finance_inventory",
		AgentMethod: "sync_inventory",
		Parameters:  templateParams(spec, "inventory_params"),
	})
	marketing := NewTask(TaskSpec{
		Name:        "Launch Marketing Campaign",
		Description: "Create and launch multi-channel marketing campaign",
		AgentType:   "marketing",
		AgentMethod: "launch_campaign",
		Parameters:  templateParams(spec, "marketing_params"),
		DependsOn:   []string{website.ID, visual.ID},
	})

	w.AddTask(visual)
	w.AddTask(website)
	w.AddTask(inventory)
	w.AddTask(marketing)
	return w, nil
}

// productLaunchTemplate is the single-product variant of the brand
// launch: photography, catalog listing, then announcement.
func (e *Engine) productLaunchTemplate(spec Spec) (*Workflow, error) {
	w := NewWorkflow("Product Launch", TypeProductLaunch)
	w.Description = "Launch a new product with marketing and inventory setup"
	applySpecPolicy(w, e, spec)

	photos := NewTask(TaskSpec{
		Name:               "Generate Product Photography",
		Description:        "Create studio and lifestyle shots for the product",
		AgentType:          "visual_content",
		AgentMethod:        "generate_product_images",
		Parameters:         templateParams(spec, "photography_params"),
		CompensationMethod: "delete_generated_content",
	})
	listing := NewTask(TaskSpec{
		Name:               "Create Catalog Listing",
		Description:        "Publish the product to the storefront catalog",
		AgentType:          "ecommerce",
		AgentMethod:        "create_listing",
		Parameters:         templateParams(spec, "listing_params"),
		DependsOn:          []string{photos.ID},
		CompensationMethod: "remove_listing",
	})
	stock := NewTask(TaskSpec{
		Name:        "Allocate Initial Stock",
		Description: "Register opening inventory levels for the product",
		AgentType:   "finance_inventory",
		AgentMethod: "allocate_stock",
		Parameters:  templateParams(spec, "stock_params"),
	})
	announce := NewTask(TaskSpec{
		Name:        "Announce Product",
		Description: "Push launch announcement across marketing channels",
		AgentType:   "marketing",
		AgentMethod: "announce_product",
		Parameters:  templateParams(spec, "announcement_params"),
		DependsOn:   []string{listing.ID, stock.ID},
	})

	w.AddTask(photos)
	w.AddTask(listing)
	w.AddTask(stock)
	w.AddTask(announce)
	return w, nil
}

// marketingCampaignTemplate runs creative production and audience
// segmentation in parallel, then an A/B test before the full launch.
func (e *Engine) marketingCampaignTemplate(spec Spec) (*Workflow, error) {
	w := NewWorkflow("Marketing Campaign", TypeMarketingCampaign)
	w.Description = "Execute multi-channel marketing campaign with A/B testing"
	applySpecPolicy(w, e, spec)

	creative := NewTask(TaskSpec{
		Name:        "Produce Campaign Creative",
		Description: "Generate ad imagery and copy variants",
		AgentType:   "visual_content",
		AgentMethod: "generate_campaign_creative",
		Parameters:  templateParams(spec, "creative_params"),
	})
	audience := NewTask(TaskSpec{
		Name:        "Segment Audience",
		Description: "Build target audience segments from customer data",
		AgentType:   "marketing",
		AgentMethod: "segment_audience",
		Parameters:  templateParams(spec, "audience_params"),
	})
	abTest := NewTask(TaskSpec{
		Name:        "Run A/B Test",
		Description: "Test creative variants against a sample segment",
		AgentType:   "marketing",
		AgentMethod: "run_ab_test",
		Parameters:  templateParams(spec, "ab_test_params"),
		DependsOn:   []string{creative.ID, audience.ID},
	})
	launch := NewTask(TaskSpec{
		Name:               "Launch Campaign",
		Description:        "Roll out the winning variant to all channels",
		AgentType:          "marketing",
		AgentMethod:        "launch_campaign",
		Parameters:         templateParams(spec, "launch_params"),
		DependsOn:          []string{abTest.ID},
		CompensationMethod: "pause_campaign",
	})

	w.AddTask(creative)
	w.AddTask(audience)
	w.AddTask(abTest)
	w.AddTask(launch)
	return w, nil
}

// contentGenerationTemplate is a linear pipeline: written content, visual
// content in parallel, then review and publish.
func (e *Engine) contentGenerationTemplate(spec Spec) (*Workflow, error) {
	w := NewWorkflow("Content Generation Pipeline", TypeContentGeneration)
	w.Description = "Generate visual and written content for brand"
	applySpecPolicy(w, e, spec)

	written := NewTask(TaskSpec{
		Name:        "Generate Written Content",
		Description: "Draft product descriptions and editorial copy",
		AgentType:   "content",
		AgentMethod: "generate_copy",
		Parameters:  templateParams(spec, "copy_params"),
	})
	visual := NewTask(TaskSpec{
		Name:               "Generate Visual Content",
		Description:        "Produce supporting imagery for the copy",
		AgentType:          "visual_content",
		AgentMethod:        "batch_generate",
		Parameters:         templateParams(spec, "visual_params"),
		CompensationMethod: "delete_generated_content",
	})
	publish := NewTask(TaskSpec{
		Name:        "Review and Publish",
		Description: "Run brand-voice review and publish approved content",
		AgentType:   "content",
		AgentMethod: "review_and_publish",
		Parameters:  templateParams(spec, "publish_params"),
		DependsOn:   []string{written.ID, visual.ID},
	})

	w.AddTask(written)
	w.AddTask(visual)
	w.AddTask(publish)
	return w, nil
}
